package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/live-signaling/internal/auth"
)

func newRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", JWTAuth(v), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SubjectKey))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	token, err := issuer.Issue("user-1")
	require.NoError(t, err)
	r := newRouter(issuer)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, `{"error":"no auth"}`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `{"error":"Invalid authorization header format"}`},
		{"bad token", "Bearer nope", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"valid", "Bearer " + token, http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

type staticVerifier string

func (s staticVerifier) Verify(context.Context, string) (string, error) { return string(s), nil }

func TestJWTAuthUsesVerifier(t *testing.T) {
	r := newRouter(staticVerifier("someone"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	r.ServeHTTP(w, req)
	assert.Equal(t, "someone", w.Body.String())
}
