package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sketchwars/internal/logger"
	"sketchwars/internal/service"
	"sketchwars/internal/ws"
)

// WS upgrades the connection and starts the client loop. A seat token in
// the query lets a returning player reclaim their seat; fresh clients
// connect without one and get a seat via join_room.
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var resumeID string
		if token := c.Query("token"); token != "" {
			playerID, err := service.ParsePlayerToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			resumeID = playerID
		}

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		ws.ConnectionsTotal.Inc()
		client := ws.NewClient(conn, hub, resumeID)
		go client.Run()
	}
}
