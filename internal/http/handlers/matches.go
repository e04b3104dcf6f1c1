package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RecentMatches returns the latest finished matches.
func (h *Handler) RecentMatches(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	matches, err := h.Matches.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// RoomMatches returns the match history of one room.
func (h *Handler) RoomMatches(c *gin.Context) {
	roomID := c.Param("id")

	matches, err := h.Matches.GetByRoom(c.Request.Context(), roomID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "matches": matches})
}

// TargetStats returns wins per target label for a label pair.
func (h *Handler) TargetStats(c *gin.Context) {
	labelPair := c.Query("labelPair")
	if labelPair == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "labelPair is required"})
		return
	}

	wins, err := h.Matches.TargetWins(c.Request.Context(), labelPair)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"labelPair": labelPair, "wins": wins})
}
