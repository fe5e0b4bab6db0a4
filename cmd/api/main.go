package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/picture-collab/internal/adapters/primary/http"
	mw "github.com/lorrc/picture-collab/internal/adapters/primary/http/middleware"
	"github.com/lorrc/picture-collab/internal/adapters/primary/websocket"
	"github.com/lorrc/picture-collab/internal/adapters/secondary/postgres"
	"github.com/lorrc/picture-collab/internal/auth"
	"github.com/lorrc/picture-collab/internal/config"
	"github.com/lorrc/picture-collab/internal/core/editlock"
	"github.com/lorrc/picture-collab/internal/core/services"
	"github.com/lorrc/picture-collab/internal/infrastructure/ingress"
	"github.com/lorrc/picture-collab/internal/infrastructure/logging"
	"github.com/lorrc/picture-collab/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.ServiceName = cfg.App.Name
	logCfg.Environment = cfg.App.Environment
	logger := logging.NewLogger(logCfg)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	pool, err := connectDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 4. Admission (Wiring the Hexagon)
	userRepo := postgres.NewUserRepository(pool)
	pictureRepo := postgres.NewPictureRepository(pool)
	spaceRepo := postgres.NewSpaceRepository(pool)
	memberRepo := postgres.NewSpaceMemberRepository(pool)

	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	userLookup := services.NewUserLookupService(userRepo)
	authzService := services.NewAuthorizationService(memberRepo, services.DefaultRoleTable())
	gatekeeper := services.NewGatekeeper(tokenManager, pictureRepo, spaceRepo, authzService, userLookup,
		services.WithReadSnapshot(postgres.NewSnapshotter(pool)),
	)

	// 5. Real-time Components
	m := metrics.New()
	registry := websocket.NewRegistry(logger, m)
	broadcaster := websocket.NewBroadcastEngine(registry, logger, m)
	coordinator := services.NewEditCoordinator(editlock.NewTable(), broadcaster, logger, m)

	pipeline, err := ingress.New(ingress.Config{
		Shards:     cfg.Ingress.Shards,
		BufferSize: cfg.Ingress.BufferSize,
	}, coordinator, logger, m)
	if err != nil {
		logger.Error("failed to start ingress pipeline", "error", err)
		os.Exit(1)
	}

	// 6. Rate Limiting
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
			OnReject: func(string) {
				m.AdmissionsRejected.WithLabelValues("rate_limited").Inc()
			},
		})
	}

	// 7. Handlers (Primary Adapters)
	wsHandler := httpAdapter.NewWebSocketHandler(gatekeeper, registry, pipeline, httpAdapter.WebSocketConfig{
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		IsDevelopment:   cfg.IsDevelopment(),
		Session: websocket.Config{
			WriteWait:      cfg.WebSocket.WriteWait,
			PongWait:       cfg.WebSocket.PongWait,
			PingInterval:   cfg.WebSocket.PingInterval,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendBuffer:     cfg.WebSocket.SendBuffer,
			PublishTimeout: cfg.Ingress.PublishTimeout,
			FrameRPS:       cfg.RateLimit.FrameRPS,
			FrameBurst:     cfg.RateLimit.FrameBurst,
		},
	}, logger, m)
	healthHandler := httpAdapter.NewHealthHandler(pool, registry, pipeline, cfg.App.Version)

	// 8. Setup Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(corsOptions(cfg)))

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	if cfg.App.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Probes and scrapes stay unthrottled; handshakes are limited per IP
		if rateLimiter != nil {
			r.Use(rateLimiter.Middleware)
		}
		// Admission is handled inside the handler, before the upgrade
		r.Get("/pictures/edit/ws", wsHandler.ServeHTTP)
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown, so sessions
	// are closed explicitly. Each read pump then unregisters its session and
	// queues the leave event; the pipeline stays open until they are all in.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	registry.CloseAll()
	if err := registry.WaitEmpty(shutdownCtx); err != nil {
		logger.Warn("sessions did not unregister before shutdown deadline", "error", err)
	}

	if err := pipeline.Close(cfg.Ingress.ShutdownTimeout); err != nil {
		logger.Error("ingress pipeline shutdown error", "error", err)
	}

	if rateLimiter != nil {
		rateLimiter.Stop()
	}

	logger.Info("server shutdown complete")
}

// connectDatabase opens the pool and retries the first ping with exponential backoff.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	retries := cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)),
		ctx,
	)

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("database ping failed, retrying", "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func corsOptions(cfg *config.Config) cors.Options {
	opts := cors.Options{
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 && cfg.IsDevelopment() {
		opts.AllowedOrigins = []string{"*"}
	}
	return opts
}
