package logger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zerolog.Disabled, parseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), l)
	got := Ctx(ctx)
	got.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")

	assert.Equal(t, L(), Ctx(context.Background()))
}

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(GinMiddleware(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "req-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(headerRequestID))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"status":204`)
}
