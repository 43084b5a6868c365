package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/middleware"
	"github.com/mossy-p/live-signaling/internal/models"
	"github.com/mossy-p/live-signaling/internal/session"
)

// MaxFrameBytes caps the moderation request body.
const MaxFrameBytes = 6 << 20

// ModerateFrame classifies one sampled frame for the authenticated subject.
// Must run behind middleware.JWTAuth.
func ModerateFrame(hub *session.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(middleware.SubjectKey)
		ctx := c.Request.Context()

		// A banned subject is answered before the body is looked at.
		if hub.State.IsBanned(subject) {
			c.JSON(http.StatusOK, session.Result{Outcome: session.OutcomeBanned})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxFrameBytes)

		var req models.ModerateFrameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "frame too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Frame == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing frame"})
			return
		}

		res, err := hub.Moderator.Moderate(ctx, subject, req.Frame)
		if err != nil {
			l := logger.Ctx(ctx)
			l.Error().Err(err).Msg("moderation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "moderation failed"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
