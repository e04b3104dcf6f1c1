package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sketchwars/internal/game"
)

type createRoomRequest struct {
	GameType string `json:"gameType" binding:"required"`
}

// CreateRoom mints a shareable room id for the requested mode.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gameType is required"})
		return
	}

	roomID, err := h.Hub.CreateRoom(req.GameType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roomId":   roomID,
		"gameType": req.GameType,
	})
}

// RoomStatus reports whether a room is live and joinable.
func (h *Handler) RoomStatus(c *gin.Context) {
	roomID := c.Param("id")

	room, ok := h.Hub.Room(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	seats := 0
	for _, p := range room.Match.Players() {
		if p.Role == game.SeatHuman {
			seats++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"roomId":     roomID,
		"gameType":   string(room.Match.Mode),
		"started":    room.Match.Started(),
		"humanSeats": seats,
		"turnsLeft":  room.Match.TurnsLeft(),
	})
}

// GameConfig exposes the client-facing game tunables.
func (h *Handler) GameConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"distancePerTurn": h.Cfg.DistancePerTurn,
		"totalNumTurns":   h.Cfg.TotalNumTurns,
		"canvasSize":      h.Cfg.CanvasSize,
		"softmaxFactor":   h.Cfg.SoftmaxFactor,
		"labelPairs":      h.Cfg.LabelPairs,
	})
}
