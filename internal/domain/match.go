package domain

import "time"

// MatchResult is one finished game as stored in match history.
type MatchResult struct {
	ID           int64          `json:"id"`
	RoomID       string         `json:"room_id"`
	Mode         string         `json:"mode"`
	LabelPair    string         `json:"label_pair"`
	WinnerTarget string         `json:"winner_target"`
	TurnsPlayed  int            `json:"turns_played"`
	Forfeited    bool           `json:"forfeited"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
