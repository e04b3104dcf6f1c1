package game

import (
	"crypto/rand"
	"encoding/hex"
)

type Mode string

const (
	ModeFreePlay     Mode = "free_play"
	ModeLocal        Mode = "local"
	ModeOnline       Mode = "online"
	ModeSinglePlayer Mode = "single_player"
)

// ParseMode maps a wire game type string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeFreePlay, ModeLocal, ModeOnline, ModeSinglePlayer:
		return Mode(s), true
	default:
		return "", false
	}
}

type SeatRole string

const (
	SeatHuman SeatRole = "human"
	SeatAI    SeatRole = "ai"
)

// Player is one seat in a room. ConnID is the realtime connection the seat
// is attached to; AI seats and the second local seat have none of their own.
type Player struct {
	ID          string
	ConnID      string
	Role        SeatRole
	Target      string
	TargetIndex int
}

// LabelConfidence is one post-softmax score for a target label.
type LabelConfidence struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
