package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"sketchwars/internal/config"
	"sketchwars/internal/inference"
	"sketchwars/internal/repository"
	"sketchwars/internal/ws"
)

// Handler bundles the dependencies the API endpoints share.
type Handler struct {
	DB        *pgxpool.Pool
	Cfg       *config.Config
	Hub       *ws.Hub
	Inference *inference.Client
	Matches   *repository.MatchRepository
}

func NewHandler(db *pgxpool.Pool, cfg *config.Config, hub *ws.Hub, inf *inference.Client, matches *repository.MatchRepository) *Handler {
	return &Handler{
		DB:        db,
		Cfg:       cfg,
		Hub:       hub,
		Inference: inf,
		Matches:   matches,
	}
}
