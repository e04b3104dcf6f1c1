package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sketchwars/internal/wire"
)

// AIStrokeCallback receives a computed stroke from the model service and
// relays it to the room. The room id travels in the Room-Id header, the
// same header the outbound inference calls carry.
func (h *Handler) AIStrokeCallback(c *gin.Context) {
	roomID := c.GetHeader("Room-Id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room-Id header is required"})
		return
	}

	var p wire.AIStroke
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, ok := h.Hub.Room(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	room.RelayAIStroke(p)
	c.JSON(http.StatusAccepted, gin.H{"status": "relayed"})
}
