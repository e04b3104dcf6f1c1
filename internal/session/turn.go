package session

import (
	"errors"
	"fmt"

	"sketchwars/internal/wire"
)

type Phase string

const (
	PhaseWaitingForPlayers Phase = "waiting_for_players"
	PhaseInProgress        Phase = "in_progress"
	PhaseEnded             Phase = "ended"
)

// errProtocol marks inbound events that reference unknown players or
// arrive in an impossible phase. Such events are logged and dropped; a
// stray message must not abort an otherwise live session.
var errProtocol = errors.New("protocol error")

// TurnController mirrors the server's turn state: who is seated, whose
// turn it is, how many turns remain and whether the game is over. It is
// rebuilt from each inbound event and never advanced locally; the phase
// moves waiting -> in progress -> ended and never backward.
type TurnController struct {
	localSeats map[string]bool
	playerID   string

	phase          Phase
	currentTurn    string
	turnsRemaining int
	targets        map[string]string
	targetIndices  map[string]int
	winnerTarget   string
}

func NewTurnController() *TurnController {
	return &TurnController{
		localSeats: make(map[string]bool),
		phase:      PhaseWaitingForPlayers,
	}
}

// AssignPlayer attaches a server-assigned identity to a local seat.
func (t *TurnController) AssignPlayer(playerID string) {
	t.localSeats[playerID] = true
	if t.playerID == "" {
		t.playerID = playerID
	}
}

func (t *TurnController) PlayerID() string { return t.playerID }

func (t *TurnController) Phase() Phase { return t.phase }

func (t *TurnController) CurrentTurn() string { return t.currentTurn }

func (t *TurnController) TurnsRemaining() int { return t.turnsRemaining }

func (t *TurnController) WinnerTarget() string { return t.winnerTarget }

func (t *TurnController) Targets() map[string]string { return t.targets }

func (t *TurnController) TargetIndices() map[string]int { return t.targetIndices }

// TargetOf returns the target label of a seated player.
func (t *TurnController) TargetOf(playerID string) string { return t.targets[playerID] }

// IsLocalTurn reports whether the current turn belongs to a seat driven
// by this client.
func (t *TurnController) IsLocalTurn() bool {
	return t.phase == PhaseInProgress && t.localSeats[t.currentTurn]
}

// StartGame moves the controller into the in-progress phase and rebuilds
// seat state from the server payload.
func (t *TurnController) StartGame(p wire.StartGame) error {
	if t.phase == PhaseEnded {
		return fmt.Errorf("%w: start_game after game ended", errProtocol)
	}

	t.phase = PhaseInProgress
	t.targets = p.Targets
	t.targetIndices = p.TargetIndices
	t.turnsRemaining = p.TotalNumTurns
	if p.Turn != "" {
		t.currentTurn = p.Turn
	}
	return nil
}

// StartTurn applies a server turn transition. The reported turnsLeft is
// authoritative; the controller never decrements it on its own.
func (t *TurnController) StartTurn(p wire.StartTurn) error {
	switch t.phase {
	case PhaseWaitingForPlayers:
		return fmt.Errorf("%w: start_turn before start_game", errProtocol)
	case PhaseEnded:
		return fmt.Errorf("%w: start_turn after game ended", errProtocol)
	}

	if _, known := t.targets[p.Turn]; !known {
		return fmt.Errorf("%w: start_turn for unknown player %s", errProtocol, p.Turn)
	}

	t.currentTurn = p.Turn
	t.turnsRemaining = p.TurnsLeft
	return nil
}

// EndGame forces the ended phase from any prior phase.
func (t *TurnController) EndGame(p wire.EndGame) {
	t.phase = PhaseEnded
	t.winnerTarget = p.WinnerTarget
	t.currentTurn = ""
}

// CanRequestEndTurn reports whether the local player may end the current
// turn: the game is running and the turn is theirs. The AI-computation
// guard is layered on top by the session.
func (t *TurnController) CanRequestEndTurn() bool {
	return t.phase == PhaseInProgress && t.currentTurn != "" && t.localSeats[t.currentTurn]
}
