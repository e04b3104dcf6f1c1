package http

import (
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"sketchwars/internal/config"
	"sketchwars/internal/http/handlers"
	"sketchwars/internal/http/middleware"
	"sketchwars/internal/inference"
	"sketchwars/internal/repository"
	"sketchwars/internal/ws"
)

// RegisterRoutes wires the API, the websocket endpoint and the model
// service callback. It returns the hub so the caller can shut it down.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) *ws.Hub {
	inf := inference.NewClient(cfg.ModelServiceBase)
	matchRepo := repository.NewMatchRepository(db)

	hub := ws.NewHub(cfg, inf, matchRepo)
	hub.StartCleanup()

	h := handlers.NewHandler(db, cfg, hub, inf, matchRepo)
	healthHandler := handlers.NewHealthHandler(db, version)

	// read limits from env, with safe defaults
	apiRateLimit := 60
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	{
		v1.POST("/rooms", h.CreateRoom)
		v1.GET("/rooms/:id", h.RoomStatus)
		v1.GET("/config", h.GameConfig)

		v1.GET("/matches", h.RecentMatches)
		v1.GET("/matches/room/:id", h.RoomMatches)
		v1.GET("/matches/stats", h.TargetStats)

		// model service pushes computed strokes back here
		v1.POST("/ai-stroke", h.AIStrokeCallback)
	}

	r.GET("/ws", h.WS(hub))

	return hub
}
