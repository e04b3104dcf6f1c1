package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names on the realtime channel. Directions follow the original wire
// contract: clients send join_room and end_turn, the server pushes the rest.
const (
	EventJoinRoom     = "join_room"
	EventAssignPlayer = "assign_player"
	EventStartGame    = "start_game"
	EventStartTurn    = "start_turn"
	EventEndTurn      = "end_turn"
	EventAIStroke     = "ai_stroke"
	EventEndGame      = "end_game"
	EventError        = "error"
)

// Envelope frames every message on the channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a payload into a marshaled envelope.
func Encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// Decode unmarshals an envelope's payload into dst and validates it.
func Decode[T Validator](env Envelope, dst *T) error {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("malformed %s payload: %w", env.Type, err)
	}
	return (*dst).Validate()
}

// Validator is implemented by every event payload so malformed messages
// are rejected on receipt instead of propagating zero values into state.
type Validator interface {
	Validate() error
}

// StrokeSample is one point of an AI stroke, [y x] normalized to [0,1].
type StrokeSample [2]float64

type JoinRoom struct {
	RoomID         string `json:"roomId"`
	GameType       string `json:"gameType"`
	CachedPlayerID string `json:"cachedPlayerId,omitempty"`
}

func (p JoinRoom) Validate() error {
	if p.RoomID == "" {
		return errors.New("join_room: missing roomId")
	}
	if p.GameType == "" {
		return errors.New("join_room: missing gameType")
	}
	return nil
}

type AssignPlayer struct {
	PlayerID string `json:"playerId"`
	// Token is presented on reconnect to prove ownership of the seat.
	Token string `json:"token,omitempty"`
}

func (p AssignPlayer) Validate() error {
	if p.PlayerID == "" {
		return errors.New("assign_player: missing playerId")
	}
	return nil
}

type StartGame struct {
	Targets       map[string]string `json:"targets"`
	TargetIndices map[string]int    `json:"targetIndices"`
	Canvas        string            `json:"canvas"`
	ONNXURL       string            `json:"onnxUrl"`
	TotalNumTurns int               `json:"totalNumTurns"`
	Turn          string            `json:"turn"`
}

func (p StartGame) Validate() error {
	if len(p.Targets) == 0 {
		return errors.New("start_game: missing targets")
	}
	for id := range p.Targets {
		if _, ok := p.TargetIndices[id]; !ok {
			return fmt.Errorf("start_game: player %s has no target index", id)
		}
	}
	return nil
}

type StartTurn struct {
	Turn      string `json:"turn"`
	TurnsLeft int    `json:"turnsLeft"`
	Target    string `json:"target"`
	Canvas    string `json:"canvas"`
}

func (p StartTurn) Validate() error {
	if p.Turn == "" {
		return errors.New("start_turn: missing turn player id")
	}
	if p.TurnsLeft < 0 {
		return fmt.Errorf("start_turn: negative turnsLeft %d", p.TurnsLeft)
	}
	return nil
}

type EndTurn struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Canvas   string `json:"canvas"`
	Preview  string `json:"preview"`
}

func (p EndTurn) Validate() error {
	if p.RoomID == "" {
		return errors.New("end_turn: missing roomId")
	}
	if p.PlayerID == "" {
		return errors.New("end_turn: missing playerId")
	}
	return nil
}

type AIStroke struct {
	StrokeSamples []StrokeSample `json:"strokeSamples"`
	DurationMS    int            `json:"durationMs"`
}

func (p AIStroke) Validate() error {
	if len(p.StrokeSamples) == 0 {
		return errors.New("ai_stroke: empty strokeSamples")
	}
	for i, s := range p.StrokeSamples {
		if s[0] < 0 || s[0] > 1 || s[1] < 0 || s[1] > 1 {
			return fmt.Errorf("ai_stroke: sample %d out of [0,1] range", i)
		}
	}
	if p.DurationMS < 0 {
		return errors.New("ai_stroke: negative duration")
	}
	return nil
}

// ErrorEvent tells a client its last message was rejected.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (p ErrorEvent) Validate() error {
	if p.Message == "" {
		return errors.New("error: missing message")
	}
	return nil
}

type EndGame struct {
	WinnerTarget string `json:"winnerTarget"`
}

func (p EndGame) Validate() error {
	if p.WinnerTarget == "" {
		return errors.New("end_game: missing winnerTarget")
	}
	return nil
}
