package ws

import (
	"context"
	"strings"
	"sync"
	"time"

	"sketchwars/internal/domain"
	"sketchwars/internal/game"
	"sketchwars/internal/inference"
	"sketchwars/internal/logger"
	"sketchwars/internal/service"
	"sketchwars/internal/wire"
)

// disconnectGrace is how long a seat survives without a connection before
// its player forfeits.
const defaultDisconnectGrace = 2 * time.Second

const inferTimeout = 30 * time.Second

// MatchStore persists finished matches. Nil disables persistence.
type MatchStore interface {
	Create(ctx context.Context, m *domain.MatchResult) error
}

type joinRequest struct {
	client         *Client
	cachedPlayerID string
}

type inboundEvent struct {
	client *Client
	env    wire.Envelope
}

// Room owns one match. All room state is driven by a single run loop, so
// events from different connections are serialized in arrival order.
type Room struct {
	ID    string
	Match *game.Match

	Register   chan joinRequest
	Inbound    chan inboundEvent
	Disconnect chan *Client

	hub       *Hub
	inference *inference.Client
	repo      MatchStore
	onnxURL   string
	grace     time.Duration

	mu        sync.RWMutex
	clients   map[string]*Client
	closed    bool
	createdAt time.Time

	relay       chan wire.AIStroke
	forfeit     chan string
	graceTimers map[string]*time.Timer
	done        chan struct{}
	stopOnce    sync.Once
}

func newRoom(id string, match *game.Match, hub *Hub, inf *inference.Client, repo MatchStore, onnxURL string, grace time.Duration) *Room {
	if grace <= 0 {
		grace = defaultDisconnectGrace
	}
	return &Room{
		ID:          id,
		Match:       match,
		Register:    make(chan joinRequest, 4),
		Inbound:     make(chan inboundEvent, 64),
		Disconnect:  make(chan *Client, 4),
		hub:         hub,
		inference:   inf,
		repo:        repo,
		onnxURL:     onnxURL,
		grace:       grace,
		clients:     make(map[string]*Client),
		createdAt:   time.Now(),
		relay:       make(chan wire.AIStroke, 8),
		forfeit:     make(chan string, 4),
		graceTimers: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
}

func (r *Room) run() {
	for {
		select {
		case req := <-r.Register:
			r.handleJoin(req)
		case ev := <-r.Inbound:
			r.handleEvent(ev)
		case c := <-r.Disconnect:
			r.handleDisconnect(c)
		case playerID := <-r.forfeit:
			r.handleForfeit(playerID)
		case stroke := <-r.relay:
			r.broadcast(wire.EventAIStroke, stroke)
		case <-r.done:
			return
		}
	}
}

// RelayAIStroke pushes a computed stroke from the model service callback
// into the room so every client replays it.
func (r *Room) RelayAIStroke(p wire.AIStroke) {
	select {
	case r.relay <- p:
	case <-r.done:
	}
}

// Done is closed when the room shuts down.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Room) CreatedAt() time.Time { return r.createdAt }

func (r *Room) handleJoin(req joinRequest) {
	c := req.client

	resumeID := req.cachedPlayerID
	if resumeID == "" {
		resumeID = c.ResumeID
	}

	if resumeID != "" && r.Match.HasPlayer(resumeID) {
		r.resumeSeat(c, resumeID)
		return
	}

	seats, err := r.Match.Join(c.ConnID)
	if err != nil {
		logger.Warn("join rejected", "room", r.ID, "conn", c.ConnID, "error", err)
		c.SendEvent(wire.EventError, wire.ErrorEvent{Message: err.Error()})
		return
	}

	r.mu.Lock()
	r.clients[c.ConnID] = c
	r.mu.Unlock()

	for _, seat := range seats {
		token, err := service.GeneratePlayerToken(seat.ID)
		if err != nil {
			logger.Error("seat token generation failed", "room", r.ID, "error", err)
		}
		c.SendEvent(wire.EventAssignPlayer, wire.AssignPlayer{PlayerID: seat.ID, Token: token})
	}
	logger.Info("player joined", "room", r.ID, "conn", c.ConnID, "seats", len(seats))

	if !r.Match.Started() && r.Match.CanStart() {
		r.startGame()
	}
}

// resumeSeat reattaches a returning player to their seat and replays the
// current game state so the client catches up.
func (r *Room) resumeSeat(c *Client, playerID string) {
	if err := r.Match.ReassignConn(playerID, c.ConnID); err != nil {
		c.SendEvent(wire.EventError, wire.ErrorEvent{Message: err.Error()})
		return
	}

	if t, ok := r.graceTimers[playerID]; ok {
		t.Stop()
		delete(r.graceTimers, playerID)
	}

	r.mu.Lock()
	r.clients[c.ConnID] = c
	r.mu.Unlock()

	token, err := service.GeneratePlayerToken(playerID)
	if err != nil {
		logger.Error("seat token generation failed", "room", r.ID, "error", err)
	}
	c.SendEvent(wire.EventAssignPlayer, wire.AssignPlayer{PlayerID: playerID, Token: token})

	if r.Match.Started() {
		c.SendEvent(wire.EventStartGame, r.startGamePayload())
		c.SendEvent(wire.EventStartTurn, r.startTurnPayload())
	}
	logger.Info("player resumed", "room", r.ID, "player", playerID)
}

func (r *Room) startGame() {
	r.Match.Start()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), inferTimeout)
		defer cancel()
		if err := r.inference.StartModel(ctx, r.Match.LabelPair); err != nil {
			logger.Warn("model warmup failed", "room", r.ID, "error", err)
		}
	}()

	r.broadcast(wire.EventStartGame, r.startGamePayload())
	r.broadcast(wire.EventStartTurn, r.startTurnPayload())
	logger.Info("game started", "room", r.ID, "mode", r.Match.Mode)
}

func (r *Room) startGamePayload() wire.StartGame {
	return wire.StartGame{
		Targets:       r.Match.Targets(),
		TargetIndices: r.Match.TargetIndices(),
		Canvas:        r.Match.Canvas(),
		ONNXURL:       r.onnxURL,
		TotalNumTurns: r.Match.TotalTurns(),
		Turn:          r.Match.Turn().ID,
	}
}

func (r *Room) startTurnPayload() wire.StartTurn {
	p := r.Match.Turn()
	return wire.StartTurn{
		Turn:      p.ID,
		TurnsLeft: r.Match.TurnsLeft(),
		Target:    p.Target,
		Canvas:    r.Match.Canvas(),
	}
}

func (r *Room) handleEvent(ev inboundEvent) {
	switch ev.env.Type {
	case wire.EventEndTurn:
		var p wire.EndTurn
		if err := wire.Decode(ev.env, &p); err != nil {
			ev.client.SendEvent(wire.EventError, wire.ErrorEvent{Message: err.Error()})
			return
		}
		r.handleEndTurn(ev.client, p)

	case wire.EventJoinRoom:
		// already seated, a second join is a no-op

	default:
		logger.Debug("ignoring event", "room", r.ID, "type", ev.env.Type)
	}
}

func (r *Room) handleEndTurn(c *Client, p wire.EndTurn) {
	if !r.Match.Started() {
		c.SendEvent(wire.EventError, wire.ErrorEvent{Message: "game has not started"})
		return
	}

	cur := r.Match.Turn()
	if cur == nil || cur.ID != p.PlayerID {
		c.SendEvent(wire.EventError, wire.ErrorEvent{Message: "not your turn"})
		return
	}
	// AI seats have no connection of their own; their turns are ended by
	// the human client in the same room
	if cur.Role != game.SeatAI && cur.ConnID != c.ConnID {
		c.SendEvent(wire.EventError, wire.ErrorEvent{Message: "seat belongs to another connection"})
		return
	}

	image := p.Preview
	if image == "" {
		image = p.Canvas
	}

	var outputs *[2]float64
	if image != "" {
		ctx, cancel := context.WithTimeout(context.Background(), inferTimeout)
		out, err := r.inference.Infer(ctx, r.ID, r.Match.LabelPair, image)
		cancel()
		if err != nil {
			// the turn still advances; scores keep their last value
			logger.Warn("turn inference failed", "room", r.ID, "error", err)
		} else {
			outputs = &out
		}
	}

	if err := r.Match.NextTurn(p.Canvas, outputs); err != nil {
		c.SendEvent(wire.EventError, wire.ErrorEvent{Message: err.Error()})
		return
	}

	if r.Match.CanEnd() {
		r.finishGame(r.Match.Winner(), false)
		return
	}
	r.broadcast(wire.EventStartTurn, r.startTurnPayload())
}

func (r *Room) handleDisconnect(c *Client) {
	r.mu.Lock()
	delete(r.clients, c.ConnID)
	empty := len(r.clients) == 0
	r.mu.Unlock()

	seats := r.Match.DetachConn(c.ConnID)

	if !r.Match.Started() {
		if empty {
			r.hub.Remove(r.ID)
		}
		return
	}

	for _, seat := range seats {
		playerID := seat.ID
		logger.Info("player disconnected, grace period started", "room", r.ID, "player", playerID)
		r.graceTimers[playerID] = time.AfterFunc(r.grace, func() {
			select {
			case r.forfeit <- playerID:
			case <-r.done:
			}
		})
	}
}

func (r *Room) handleForfeit(playerID string) {
	delete(r.graceTimers, playerID)

	p, ok := r.Match.PlayerByID(playerID)
	if !ok || p.ConnID != "" {
		// reconnected within the grace period
		return
	}

	winner, err := r.Match.WinnerAgainst(p)
	if err != nil {
		logger.Error("forfeit winner lookup failed", "room", r.ID, "error", err)
		return
	}
	logger.Info("player forfeited", "room", r.ID, "player", playerID, "winner", winner)
	forfeitsTotal.WithLabelValues(string(r.Match.Mode)).Inc()
	r.finishGame(winner, true)
}

func (r *Room) finishGame(winnerTarget string, forfeited bool) {
	r.broadcast(wire.EventEndGame, wire.EndGame{WinnerTarget: winnerTarget})
	gamesFinished.WithLabelValues(string(r.Match.Mode)).Inc()

	if r.repo != nil {
		result := &domain.MatchResult{
			RoomID:       r.ID,
			Mode:         string(r.Match.Mode),
			LabelPair:    strings.Join(r.Match.LabelPair[:], "-"),
			WinnerTarget: winnerTarget,
			TurnsPlayed:  r.Match.TotalTurns() - r.Match.TurnsLeft(),
			Forfeited:    forfeited,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := r.repo.Create(ctx, result); err != nil {
				logger.Error("match persist failed", "room", r.ID, "error", err)
			}
		}()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), inferTimeout)
		defer cancel()
		if err := r.inference.StopModel(ctx, r.Match.LabelPair); err != nil {
			logger.Debug("model release failed", "room", r.ID, "error", err)
		}
	}()

	r.hub.Remove(r.ID)
}

func (r *Room) broadcast(eventType string, payload any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.SendEvent(eventType, payload)
	}
}

func (r *Room) stop() {
	r.stopOnce.Do(func() {
		for _, t := range r.graceTimers {
			t.Stop()
		}
		close(r.done)
	})
}
