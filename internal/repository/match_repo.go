package repository

import (
	"context"
	"encoding/json"

	"sketchwars/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create stores one finished match.
func (r *MatchRepository) Create(ctx context.Context, m *domain.MatchResult) error {
	detailsJSON, err := json.Marshal(m.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO match_history
			(room_id, mode, label_pair, winner_target, turns_played, forfeited, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		m.RoomID,
		m.Mode,
		m.LabelPair,
		m.WinnerTarget,
		m.TurnsPlayed,
		m.Forfeited,
		detailsJSON,
	).Scan(&m.ID, &m.CreatedAt)
}

// GetByRoom returns the finished matches played in a room, newest first.
func (r *MatchRepository) GetByRoom(ctx context.Context, roomID string, limit int) ([]*domain.MatchResult, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, mode, label_pair, winner_target, turns_played, forfeited, details, created_at
		 FROM match_history
		 WHERE room_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Recent returns the latest finished matches across all rooms.
func (r *MatchRepository) Recent(ctx context.Context, limit int) ([]*domain.MatchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, mode, label_pair, winner_target, turns_played, forfeited, details, created_at
		 FROM match_history
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// TargetWins counts wins per winning target label, for the stats endpoint.
func (r *MatchRepository) TargetWins(ctx context.Context, labelPair string) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT winner_target, COUNT(*)
		 FROM match_history
		 WHERE label_pair = $1
		 GROUP BY winner_target`,
		labelPair,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wins := make(map[string]int)
	for rows.Next() {
		var target string
		var count int
		if err := rows.Scan(&target, &count); err != nil {
			return nil, err
		}
		wins[target] = count
	}
	return wins, rows.Err()
}

func scanMatches(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
}) ([]*domain.MatchResult, error) {
	var result []*domain.MatchResult

	for rows.Next() {
		var (
			m           domain.MatchResult
			detailsJSON []byte
		)

		if err := rows.Scan(
			&m.ID, &m.RoomID, &m.Mode, &m.LabelPair, &m.WinnerTarget,
			&m.TurnsPlayed, &m.Forfeited, &detailsJSON, &m.CreatedAt,
		); err != nil {
			return nil, err
		}

		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &m.Details)
		}

		result = append(result, &m)
	}

	return result, nil
}
