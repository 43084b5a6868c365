package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mossy-p/live-signaling/config"
	"github.com/mossy-p/live-signaling/internal/auth"
	"github.com/mossy-p/live-signaling/internal/classifier"
	"github.com/mossy-p/live-signaling/internal/handlers"
	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/metrics"
	"github.com/mossy-p/live-signaling/internal/redis"
	"github.com/mossy-p/live-signaling/internal/session"
	"github.com/mossy-p/live-signaling/internal/users"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		l := logger.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "live-signaling",
	})
	log := logger.L()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.L()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := users.NewStore(cfg.AdminKey)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	// The moderation context carries the deadline; no client-wide timeout.
	nsfw := classifier.New(cfg.Moderation.Endpoint, &http.Client{})

	opts := session.Options{
		Verifier:          issuer,
		Directory:         store,
		Classifier:        nsfw,
		Metrics:           m,
		StrikeThreshold:   cfg.Moderation.StrikeThreshold,
		ClassifierTimeout: cfg.Moderation.Timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		log.Info().Str("host", cfg.Redis.Host).Msg("Redis connection established")

		presence := redis.NewPresence(client, session.RoomName)
		opts.Presence = presence
		g.Go(func() error { return presence.Run(gctx) })
	}

	hub := session.NewHub(opts)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		Config:   cfg,
		Hub:      hub,
		Users:    store,
		Issuer:   issuer,
		Gatherer: reg,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("live signaling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
