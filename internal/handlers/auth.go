package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/live-signaling/internal/auth"
	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/models"
	"github.com/mossy-p/live-signaling/internal/users"
)

// Signup registers a user behind the admin access key and returns a token.
func Signup(store *users.Store, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user, err := store.Signup(c.Request.Context(), req.AccessKey, req.Password, req.Name)
		switch {
		case errors.Is(err, users.ErrInvalidAdminKey):
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid admin key"})
			return
		case errors.Is(err, users.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password too short"})
			return
		case err != nil:
			l := logger.Ctx(c.Request.Context())
			l.Error().Err(err).Msg("signup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
			return
		}

		issueToken(c, issuer, user.ID)
	}
}

// Login checks a user's password and returns a fresh token.
func Login(store *users.Store, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user, err := store.Login(c.Request.Context(), req.ID, req.Password)
		switch {
		case errors.Is(err, users.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing credentials"})
			return
		case errors.Is(err, users.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		case errors.Is(err, users.ErrWrongPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
			return
		case err != nil:
			l := logger.Ctx(c.Request.Context())
			l.Error().Err(err).Msg("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		issueToken(c, issuer, user.ID)
	}
}

// ListUsers returns every registered user's public profile.
func ListUsers(store *users.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.List())
	}
}

func issueToken(c *gin.Context, issuer *auth.Issuer, subject string) {
	token, err := issuer.Issue(subject)
	if err != nil {
		l := logger.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{ID: subject, Token: token})
}
