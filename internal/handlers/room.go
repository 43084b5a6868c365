package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/live-signaling/internal/models"
	"github.com/mossy-p/live-signaling/internal/session"
)

func roomStatus(hub *session.Hub) models.RoomStatus {
	live, _ := hub.State.Broadcaster()
	return models.RoomStatus{
		ID:      session.RoomName,
		Live:    live,
		Members: hub.Registry.Members(),
	}
}

// GetRoom returns the shared room's broadcaster and member count (public)
func GetRoom(hub *session.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, roomStatus(hub))
	}
}

// Health reports liveness along with the room summary.
func Health(hub *session.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := roomStatus(hub)
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"live":    status.Live,
			"members": status.Members,
		})
	}
}
