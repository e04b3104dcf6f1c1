package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrRoomFull      = errors.New("room has no free seat")
	ErrNotStarted    = errors.New("game has not started")
	ErrUnknownPlayer = errors.New("unknown player")
)

// Match is the authoritative server-side state of one room: which labels
// are being drawn, who sits where, whose turn it is and how many turns
// remain. Clients mirror this state from the events the room emits and
// never advance it locally.
type Match struct {
	Mode      Mode
	RoomID    string
	LabelPair [2]string

	mu           sync.RWMutex
	players      []*Player
	turnIndex    int
	started      bool
	totalTurns   int
	turnsLeft    int
	canvas       string
	modelOutputs [2]float64
}

func NewMatch(mode Mode, roomID string, labelPair [2]string, totalTurns int) (*Match, error) {
	if mode == ModeFreePlay {
		return nil, errors.New("free play rooms are not implemented")
	}
	if labelPair[0] == "" || labelPair[1] == "" {
		return nil, errors.New("label pair is incomplete")
	}

	return &Match{
		Mode:       mode,
		RoomID:     roomID,
		LabelPair:  labelPair,
		totalTurns: totalTurns,
		turnsLeft:  totalTurns,
	}, nil
}

// ParseLabelPair splits a "label1-label2" config entry.
func ParseLabelPair(s string) ([2]string, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return [2]string{}, fmt.Errorf("invalid label pair %q", s)
	}
	return [2]string{parts[0], parts[1]}, nil
}

// Join seats the joining connection according to the mode's seat plan and
// returns the seats that belong to that connection. Online rooms add one
// human per join; single-player rooms add the human plus an AI opponent;
// local rooms add two human seats driven by the same connection.
func (m *Match) Join(connID string) ([]*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.Mode {
	case ModeOnline:
		if len(m.players) >= 2 {
			return nil, ErrRoomFull
		}
		return []*Player{m.addPlayer(connID, SeatHuman)}, nil

	case ModeSinglePlayer:
		if len(m.players) > 0 {
			return nil, ErrRoomFull
		}
		human := m.addPlayer(connID, SeatHuman)
		m.addPlayer("", SeatAI)
		return []*Player{human}, nil

	case ModeLocal:
		if len(m.players) > 0 {
			return nil, ErrRoomFull
		}
		return []*Player{
			m.addPlayer(connID, SeatHuman),
			m.addPlayer(connID, SeatHuman),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported mode %q", m.Mode)
	}
}

func (m *Match) addPlayer(connID string, role SeatRole) *Player {
	targetIndex := len(m.players)
	p := &Player{
		ID:          newID(),
		ConnID:      connID,
		Role:        role,
		Target:      m.LabelPair[targetIndex],
		TargetIndex: targetIndex,
	}
	m.players = append(m.players, p)
	return p
}

func (m *Match) CanStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players) >= 2
}

func (m *Match) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *Match) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
}

// Turn returns the player whose turn it is.
func (m *Match) Turn() *Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.players) == 0 {
		return nil
	}
	return m.players[m.turnIndex]
}

func (m *Match) TurnsLeft() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.turnsLeft
}

func (m *Match) TotalTurns() int { return m.totalTurns }

// NextTurn records the finished turn's canvas and score, rotates to the
// next seat and decrements the remaining turn count by exactly one. A nil
// outputs keeps the last recorded score, so a failed scoring call cannot
// zero out the match outcome.
func (m *Match) NextTurn(canvas string, outputs *[2]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if len(m.players) == 0 {
		return ErrNotStarted
	}

	m.canvas = canvas
	if outputs != nil {
		m.modelOutputs = *outputs
	}
	m.turnIndex = (m.turnIndex + 1) % len(m.players)
	m.turnsLeft--
	return nil
}

func (m *Match) CanEnd() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.turnsLeft <= 0
}

// Winner returns the target label with the higher final model output.
func (m *Match) Winner() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.modelOutputs[1] > m.modelOutputs[0] {
		return m.LabelPair[1]
	}
	return m.LabelPair[0]
}

// WinnerAgainst returns the target of the opponent of loser, used when a
// player forfeits by disconnecting.
func (m *Match) WinnerAgainst(loser *Player) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if p.ID != loser.ID {
			return p.Target, nil
		}
	}
	return "", ErrUnknownPlayer
}

func (m *Match) Players() []*Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Player, len(m.players))
	copy(out, m.players)
	return out
}

func (m *Match) HasPlayer(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (m *Match) PlayerByID(id string) (*Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (m *Match) PlayersByConn(connID string) []*Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Player
	for _, p := range m.players {
		if p.ConnID == connID && p.ConnID != "" {
			out = append(out, p)
		}
	}
	return out
}

// ReassignConn attaches a reconnecting connection to its cached seat.
func (m *Match) ReassignConn(playerID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.ID == playerID {
			p.ConnID = connID
			return nil
		}
	}
	return ErrUnknownPlayer
}

// DetachConn clears the connection from any seats it drives, returning
// them. Seats stay in the match so the player can resume within the grace
// period.
func (m *Match) DetachConn(connID string) []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Player
	for _, p := range m.players {
		if p.ConnID == connID && p.ConnID != "" {
			p.ConnID = ""
			out = append(out, p)
		}
	}
	return out
}

// Canvas returns the retained snapshot used for resuming after a reconnect.
func (m *Match) Canvas() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.canvas
}

func (m *Match) SetCanvas(canvas string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canvas = canvas
}

// Targets maps player ids to their target labels.
func (m *Match) Targets() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.players))
	for _, p := range m.players {
		out[p.ID] = p.Target
	}
	return out
}

// TargetIndices maps player ids to classifier output indices.
func (m *Match) TargetIndices() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.players))
	for _, p := range m.players {
		out[p.ID] = p.TargetIndex
	}
	return out
}
