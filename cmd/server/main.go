package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soil-bknd/internal/auth"
	"soil-bknd/internal/config"
	"soil-bknd/internal/database"
	"soil-bknd/internal/logger"
	"soil-bknd/internal/middleware"
	"soil-bknd/internal/observability"
	"soil-bknd/internal/realtime"
	"soil-bknd/internal/realtime/bus"
	"soil-bknd/internal/routes"
	"soil-bknd/internal/services"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	db, err := database.New(cfg.DatabaseURL, cfg)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	hub := realtime.NewHub(logr)

	var remote realtime.Remote
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(ctx, logr, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer b.Close()
		if err := b.StartForwarder(ctx, hub.Broadcast); err != nil {
			logr.Fatal("failed to start redis forwarder", zap.Error(err))
		}
		remote = b
		logr.Info("change events fan out through redis", zap.String("channel", cfg.RedisChannel))
	}
	publisher := realtime.NewPublisher(hub, remote, logr)

	var verifier middleware.TokenVerifier
	if cfg.AuthEnabled() {
		jwtMgr, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTPublicKeyPath, cfg.JWTIssuer)
		if err != nil {
			logr.Fatal("failed to init jwt manager", zap.Error(err))
		}
		verifier = jwtMgr
	} else {
		logr.Warn("JWT_SECRET and JWT_PUBLIC_KEY_PATH are unset, mutating routes are unauthenticated")
	}

	sampleSvc := services.NewSampleService(db, clock, publisher)
	municipalitySvc := services.NewMunicipalityService(db)
	analyticsSvc := services.NewAnalyticsService(sampleSvc, municipalitySvc, clock)

	r := routes.NewRouter(cfg, logr, routes.Deps{
		Samples:        sampleSvc,
		Municipalities: municipalitySvc,
		Analytics:      analyticsSvc,
		Ready:          &database.Readiness{DB: db},
		Hub:            hub,
		Verifier:       verifier,
		Metrics:        metrics,
		Clock:          clock,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: event and map streams are long-lived
	}
	server.RegisterOnShutdown(hub.CloseAll)

	go func() {
		logr.Info("server started", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logr.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	logr.Info("server exited gracefully")
}
