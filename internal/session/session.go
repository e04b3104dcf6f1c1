package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"sketchwars/internal/game"
	"sketchwars/internal/wire"
)

var ErrEndTurnBlocked = errors.New("end turn not permitted")

// Config carries the game tunables the server hands to clients.
type Config struct {
	RoomID          string
	Mode            game.Mode
	DistancePerTurn float64
	SoftmaxFactor   float64
	CanvasSize      float64

	// AIStrokeTimeout bounds the wait for the remote stroke computation;
	// StrokeReplayDuration is how long replaying the stroke should take.
	AIStrokeTimeout      time.Duration
	StrokeReplayDuration time.Duration
}

// Session drives one client's side of a match. It feeds realtime events
// into the turn controller, meters drawing through the distance budget,
// schedules inference and pushes results at the renderer.
//
// All state transitions happen on discrete calls (pointer events, channel
// events, inference completions); the mutex serializes them.
type Session struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	turns  *TurnController
	budget *game.DistanceBudget
	agg    game.Aggregator

	emitter    Emitter
	inferencer Inferencer
	renderer   Renderer
	surface    DrawingSurface
	store      StateStore

	ai *aiAdapter

	// inference single-flight guard: move-triggered scoring is dropped
	// while busy, the turn-ending call is deferred instead of lost.
	inferenceBusy bool
	pendingFinal  bool
	epoch         int
	droppedMoves  int

	penDown      bool
	lastX, lastY float64
}

func New(cfg Config, inferencer Inferencer, renderer Renderer, surface DrawingSurface, store StateStore, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	if cfg.StrokeReplayDuration <= 0 {
		cfg.StrokeReplayDuration = 3 * time.Second
	}
	if cfg.AIStrokeTimeout <= 0 {
		cfg.AIStrokeTimeout = 90 * time.Second
	}

	s := &Session{
		cfg:        cfg,
		log:        log.With("room", cfg.RoomID, "mode", cfg.Mode),
		turns:      NewTurnController(),
		budget:     game.NewDistanceBudget(cfg.DistancePerTurn),
		inferencer: inferencer,
		renderer:   renderer,
		surface:    surface,
		store:      store,
	}
	if cfg.Mode == game.ModeSinglePlayer {
		s.ai = newAIAdapter(store, cfg.AIStrokeTimeout)
	}
	return s
}

// Bind attaches the outbound event channel.
func (s *Session) Bind(e Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = e
}

// Join requests a seat, presenting the cached identity when resuming.
func (s *Session) Join() error {
	cached, _ := s.store.Get(keyPlayerID)
	return s.emit(wire.EventJoinRoom, wire.JoinRoom{
		RoomID:         s.cfg.RoomID,
		GameType:       string(s.cfg.Mode),
		CachedPlayerID: cached,
	})
}

// HandleEvent dispatches one inbound realtime event. Events are processed
// in arrival order; malformed or out-of-phase events are logged and
// dropped without touching state.
func (s *Session) HandleEvent(env wire.Envelope) {
	switch env.Type {
	case wire.EventAssignPlayer:
		var p wire.AssignPlayer
		if err := wire.Decode(env, &p); err != nil {
			s.log.Warn("dropping event", "type", env.Type, "error", err)
			return
		}
		s.onAssignPlayer(p)

	case wire.EventStartGame:
		var p wire.StartGame
		if err := wire.Decode(env, &p); err != nil {
			s.log.Warn("dropping event", "type", env.Type, "error", err)
			return
		}
		s.onStartGame(p)

	case wire.EventStartTurn:
		var p wire.StartTurn
		if err := wire.Decode(env, &p); err != nil {
			s.log.Warn("dropping event", "type", env.Type, "error", err)
			return
		}
		s.onStartTurn(p)

	case wire.EventAIStroke:
		var p wire.AIStroke
		if err := wire.Decode(env, &p); err != nil {
			s.log.Warn("dropping event", "type", env.Type, "error", err)
			return
		}
		s.onAIStroke(p)

	case wire.EventEndGame:
		var p wire.EndGame
		if err := wire.Decode(env, &p); err != nil {
			s.log.Warn("dropping event", "type", env.Type, "error", err)
			return
		}
		s.onEndGame(p)

	default:
		s.log.Debug("ignoring unknown event", "type", env.Type)
	}
}

func (s *Session) onAssignPlayer(p wire.AssignPlayer) {
	// single-player seats are derived from start_game instead
	if s.ai != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns.AssignPlayer(p.PlayerID)
	s.store.Set(keyPlayerID, p.PlayerID)
	if p.Token != "" {
		s.store.Set(keyIdentityToken, p.Token)
	}
	s.log.Info("assigned player id", "player", p.PlayerID)
}

func (s *Session) onStartGame(p wire.StartGame) {
	s.mu.Lock()

	if err := s.turns.StartGame(p); err != nil {
		s.mu.Unlock()
		s.log.Warn("ignoring event", "type", wire.EventStartGame, "error", err)
		return
	}

	// label order follows the classifier output indices
	all := make([]string, len(p.Targets))
	for id, idx := range p.TargetIndices {
		if idx >= 0 && idx < len(all) {
			all[idx] = p.Targets[id]
		}
	}
	s.agg = game.Aggregator{
		AllLabels:     all,
		TargetLabels:  all,
		SoftmaxFactor: s.cfg.SoftmaxFactor,
	}

	if s.ai != nil {
		cached, _ := s.store.Get(keyPlayerID)
		humanID, resumed := s.ai.resolveSeats(cached, p)
		s.turns.AssignPlayer(humanID)
		if !resumed {
			s.store.Set(keyPlayerID, humanID)
			s.renderer.Notify("Your target is " + p.Targets[humanID])
		}
	}

	s.surface.SetCanvas(p.Canvas)
	onnxURL := p.ONNXURL
	s.mu.Unlock()

	if onnxURL != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.inferencer.LoadModel(ctx, onnxURL); err != nil {
				s.log.Error("model load failed", "error", err)
			}
		}()
	}
}

func (s *Session) onStartTurn(p wire.StartTurn) {
	s.mu.Lock()

	if err := s.turns.StartTurn(p); err != nil {
		s.mu.Unlock()
		s.log.Warn("ignoring event", "type", wire.EventStartTurn, "error", err)
		return
	}

	// a new turn invalidates any in-flight inference result
	s.epoch++

	s.surface.SetCanvas(p.Canvas)

	myTurn := s.turns.IsLocalTurn()
	if myTurn {
		s.surface.SetEnabled(true)
		s.budget.Reset()
	} else {
		s.surface.SetEnabled(false)
		s.budget.Empty()
	}
	s.renderer.UpdateTurnIndicator(p.TurnsLeft, p.Target, myTurn)

	var requestStroke bool
	var preview string
	if s.ai != nil && p.Turn == s.ai.aiID {
		// duplicate start_turn for the same AI turn must not issue a
		// second computation
		if !s.ai.mutexHeld() {
			s.ai.setMutex(true)
			s.ai.armTimeout(s.onAIStall)
			preview = s.surface.PreviewDataURL()
			requestStroke = true
		} else if s.ai.timer == nil && !s.ai.replaying {
			// resumed with the computation still outstanding; watch it
			// so a stroke that never arrives can still be skipped
			s.ai.armTimeout(s.onAIStall)
		}
		s.renderer.Notify("AI is computing...")
	}
	targetIndex := 0
	if s.ai != nil {
		targetIndex = s.ai.aiTargetIndex
	}
	s.mu.Unlock()

	if requestStroke {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.inferencer.RequestStroke(ctx, preview, targetIndex); err != nil {
				s.log.Error("ai stroke request failed", "error", err)
			}
		}()
	}
}

func (s *Session) onAIStroke(p wire.AIStroke) {
	s.mu.Lock()
	if s.ai == nil {
		s.mu.Unlock()
		s.log.Warn("ignoring event", "type", wire.EventAIStroke, "error", "no AI seat in this mode")
		return
	}
	if !s.ai.mutexHeld() {
		s.mu.Unlock()
		s.log.Warn("ignoring event", "type", wire.EventAIStroke, "error", "no AI computation outstanding")
		return
	}
	if s.ai.replaying {
		s.mu.Unlock()
		s.log.Warn("ignoring event", "type", wire.EventAIStroke, "error", "stroke replay already in progress")
		return
	}
	s.ai.replaying = true
	s.ai.disarmTimeout()
	s.mu.Unlock()

	go s.replayStroke(p)
}

// replayStroke redraws the AI stroke at a fixed sample cadence so
// spectators watch it appear the way a human would draw it, then ends the
// AI seat's turn.
func (s *Session) replayStroke(p wire.AIStroke) {
	duration := s.cfg.StrokeReplayDuration
	if p.DurationMS > 0 {
		duration = time.Duration(p.DurationMS) * time.Millisecond
	}
	interval := duration / time.Duration(len(p.StrokeSamples))

	for i, sample := range p.StrokeSamples {
		y := sample[0] * s.cfg.CanvasSize
		x := sample[1] * s.cfg.CanvasSize

		s.mu.Lock()
		if i == 0 {
			s.surface.BeginStroke(x, y)
		} else {
			s.surface.StrokeTo(x, y)
		}
		s.mu.Unlock()

		time.Sleep(interval)
	}

	s.mu.Lock()
	s.surface.EndStroke()
	canvas := s.surface.CanvasDataURL()
	preview := s.surface.PreviewDataURL()
	aiID := s.ai.aiID
	ended := s.turns.Phase() == PhaseEnded
	s.ai.replaying = false
	s.ai.setMutex(false)
	s.mu.Unlock()

	// the game can end mid-replay; do not end a turn that no longer exists
	if ended {
		return
	}

	if err := s.emit(wire.EventEndTurn, wire.EndTurn{
		RoomID:   s.cfg.RoomID,
		PlayerID: aiID,
		Canvas:   canvas,
		Preview:  preview,
	}); err != nil {
		s.log.Error("ai end turn failed", "error", err)
	}
}

func (s *Session) onAIStall() {
	s.mu.Lock()
	s.ai.setMutex(false)
	s.ai.stalled = true
	s.mu.Unlock()

	s.log.Error("ai stroke computation timed out")
	s.renderer.Notify("AI failed to respond, you may skip its turn")
}

func (s *Session) onEndGame(p wire.EndGame) {
	s.mu.Lock()
	s.turns.EndGame(p)
	s.epoch++
	s.surface.SetEnabled(false)
	s.budget.Empty()
	if s.ai != nil {
		s.ai.disarmTimeout()
		s.ai.replaying = false
		s.ai.setMutex(false)
	}
	s.mu.Unlock()

	s.renderer.ShowWinner(p.WinnerTarget)
}

// PointerDown begins a stroke when drawing is permitted.
func (s *Session) PointerDown(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.turns.IsLocalTurn() || !s.budget.CanDraw() {
		return
	}
	s.penDown = true
	s.lastX, s.lastY = x, y
	s.surface.BeginStroke(x, y)
}

// PointerMove extends the stroke, charging the distance budget. Segments
// that would overrun the budget are truncated to land exactly on the
// limit, after which the stroke ends and drawing disables until the next
// turn.
func (s *Session) PointerMove(x, y float64) {
	s.mu.Lock()
	if !s.penDown {
		s.mu.Unlock()
		return
	}

	ex, ey, truncated := s.budget.ApplySegment(s.lastX, s.lastY, x, y)
	s.surface.StrokeTo(ex, ey)
	s.lastX, s.lastY = ex, ey
	if truncated {
		s.penDown = false
		s.surface.EndStroke()
	}
	s.mu.Unlock()

	s.tryPreviewScoring()
}

// PointerUp ends the stroke and triggers the authoritative scoring pass.
func (s *Session) PointerUp() {
	s.mu.Lock()
	wasDrawing := s.penDown
	if s.penDown {
		s.penDown = false
		s.surface.EndStroke()
	}
	localTurn := s.turns.IsLocalTurn()
	s.mu.Unlock()

	if wasDrawing || localTurn {
		s.finalScoring()
	}
}

// tryPreviewScoring runs a preview inference unless one is in flight;
// intermediate updates are dropped, not queued.
func (s *Session) tryPreviewScoring() {
	s.mu.Lock()
	if len(s.agg.AllLabels) == 0 || s.inferenceBusy {
		if s.inferenceBusy {
			s.droppedMoves++
		}
		s.mu.Unlock()
		return
	}
	s.inferenceBusy = true
	epoch := s.epoch
	preview := s.surface.PreviewDataURL()
	s.mu.Unlock()

	go s.runScoring(epoch, preview, false)
}

// finalScoring schedules the turn-ending inference. Unlike the preview
// path it is never dropped: if an inference is in flight it runs as soon
// as that one releases the guard.
func (s *Session) finalScoring() {
	s.mu.Lock()
	if len(s.agg.AllLabels) == 0 {
		s.mu.Unlock()
		return
	}
	if s.inferenceBusy {
		s.pendingFinal = true
		s.mu.Unlock()
		return
	}
	s.inferenceBusy = true
	epoch := s.epoch
	preview := s.surface.PreviewDataURL()
	s.mu.Unlock()

	go s.runScoring(epoch, preview, true)
}

func (s *Session) runScoring(epoch int, preview string, final bool) {
	defer s.releaseScoring()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var outputs []float64
	var err error
	if final {
		s.mu.Lock()
		targetIndex := s.turns.TargetIndices()[s.turns.PlayerID()]
		s.mu.Unlock()
		outputs, err = s.inferencer.ClassifyRemote(ctx, preview, targetIndex)
	} else {
		outputs, err = s.inferencer.ClassifyLocal(ctx, preview)
	}
	if err != nil {
		// keep the last displayed confidences
		s.log.Warn("inference failed", "final", final, "error", err)
		return
	}

	s.mu.Lock()
	agg := s.agg
	stale := epoch != s.epoch
	s.mu.Unlock()

	if stale {
		s.log.Debug("discarding stale inference result", "epoch", epoch)
		return
	}

	confidences, err := agg.Confidences(outputs)
	if err != nil {
		s.log.Warn("score aggregation failed", "error", err)
		return
	}
	s.renderer.Display(confidences)
}

func (s *Session) releaseScoring() {
	s.mu.Lock()
	runFinal := s.pendingFinal
	s.pendingFinal = false
	s.inferenceBusy = false
	s.mu.Unlock()

	if runFinal {
		s.finalScoring()
	}
}

// RequestEndTurn ends the local player's turn: one last authoritative
// scoring pass, then the end_turn event with the canvas snapshot. The
// controller then waits for the server's next start_turn or end_game; it
// never advances the turn count locally.
func (s *Session) RequestEndTurn() error {
	s.mu.Lock()
	if !s.turns.CanRequestEndTurn() {
		s.mu.Unlock()
		return ErrEndTurnBlocked
	}
	if s.ai != nil && s.ai.mutexHeld() {
		s.mu.Unlock()
		return ErrEndTurnBlocked
	}

	playerID := s.turns.CurrentTurn()
	canvas := s.surface.CanvasDataURL()
	preview := s.surface.PreviewDataURL()
	s.mu.Unlock()

	s.finalScoring()

	return s.emit(wire.EventEndTurn, wire.EndTurn{
		RoomID:   s.cfg.RoomID,
		PlayerID: playerID,
		Canvas:   canvas,
		Preview:  preview,
	})
}

// SkipAITurn ends the AI seat's turn after its computation stalled.
func (s *Session) SkipAITurn() error {
	s.mu.Lock()
	if s.ai == nil || !s.ai.stalled {
		s.mu.Unlock()
		return ErrEndTurnBlocked
	}
	s.ai.stalled = false
	aiID := s.ai.aiID
	canvas := s.surface.CanvasDataURL()
	preview := s.surface.PreviewDataURL()
	s.mu.Unlock()

	return s.emit(wire.EventEndTurn, wire.EndTurn{
		RoomID:   s.cfg.RoomID,
		PlayerID: aiID,
		Canvas:   canvas,
		Preview:  preview,
	})
}

// Phase exposes the mirrored game phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns.Phase()
}

// PlayerID exposes the local player identity.
func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns.PlayerID()
}

// BudgetRemaining exposes the distance left this turn.
func (s *Session) BudgetRemaining() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Remaining()
}

// DroppedMoveScorings counts preview inferences dropped by the
// single-flight guard.
func (s *Session) DroppedMoveScorings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedMoves
}

func (s *Session) emit(eventType string, payload any) error {
	s.mu.Lock()
	e := s.emitter
	s.mu.Unlock()

	if e == nil {
		return errors.New("no emitter bound")
	}
	return e.Emit(eventType, payload)
}

// DecodeEnvelope parses a raw channel frame.
func DecodeEnvelope(raw []byte) (wire.Envelope, error) {
	var env wire.Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
