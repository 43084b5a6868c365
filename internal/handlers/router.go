package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mossy-p/live-signaling/config"
	"github.com/mossy-p/live-signaling/internal/auth"
	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/middleware"
	"github.com/mossy-p/live-signaling/internal/session"
	"github.com/mossy-p/live-signaling/internal/users"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Hub      *session.Hub
	Users    *users.Store
	Issuer   *auth.Issuer
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(d.Logger))

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(d.Config.AllowedOrigins))

	router.GET("/health", Health(d.Hub))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/signup", Signup(d.Users, d.Issuer))
		apiGroup.POST("/login", Login(d.Users, d.Issuer))
		apiGroup.GET("/users", ListUsers(d.Users))
		apiGroup.GET("/room", GetRoom(d.Hub))

		// Requires a bearer token; the subject comes from it.
		apiGroup.POST("/moderate-frame", middleware.JWTAuth(d.Issuer), ModerateFrame(d.Hub))
	}

	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/signal", HandleSignaling(d.Hub))
	}

	return router
}
