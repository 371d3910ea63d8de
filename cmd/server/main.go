package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sketchbook/internal/adapter/export"
	"sketchbook/internal/adapter/gateway"
	"sketchbook/internal/adapter/llm"
	"sketchbook/internal/adapter/store"
	"sketchbook/internal/infra/config"
	"sketchbook/internal/infra/logger"
	"sketchbook/internal/infra/middleware"
	"sketchbook/internal/infra/tracer"
	"sketchbook/internal/usecase/eventbus"
	"sketchbook/internal/usecase/janitor"
	"sketchbook/internal/usecase/motion"
	"sketchbook/internal/usecase/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return "./config.yaml"
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Store
	db, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	// 4. Event bus
	bus := eventbus.New(log)
	defer bus.Close()

	// 5. Completion endpoint behind a circuit breaker
	completer := llm.NewCircuitBreakerCompleter(llm.NewClient(cfg.LLM, log), cfg.LLM.Breaker, log)

	// 6. Sessions
	sessions := session.NewManager(session.Factory{
		Config: session.Config{
			Width:        cfg.Canvas.Width,
			Height:       cfg.Canvas.Height,
			MinZoom:      cfg.Canvas.MinZoom,
			MaxZoom:      cfg.Canvas.MaxZoom,
			Temperature:  cfg.Actor.Temperature,
			MaxTokens:    cfg.Actor.MaxTokens,
			SystemPrompt: cfg.Actor.SystemPrompt,
			DrawingMode:  cfg.Actor.DrawingMode,
			TurnTimeout:  cfg.Actor.TurnTimeout,
		},
		Motion: motion.Options{
			Speed:     cfg.Actor.Speed,
			JitterAmp: cfg.Actor.Jitter,
			Seed:      time.Now().UnixNano(),
		},
		Completer: completer,
		Store:     db,
		Snapshot:  export.NewRenderer(),
		Bus:       bus,
		Logger:    log,
	})
	defer sessions.CloseAll()

	// 7. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 8. Gateway
	srv := gateway.NewServer(bus, sessions, cfg.Server.Addr, cfg.Server.AllowedOrigins, log)
	srv.Use(middleware.SecurityHeaders)
	srv.Use(middleware.ValidateOrigin(cfg.Server.AllowedOrigins))
	if cfg.Server.RateLimit.Enabled {
		srv.Use(middleware.RateLimit(ctx, middleware.RateLimitConfig{
			RPS:            cfg.Server.RateLimit.RPS,
			Burst:          cfg.Server.RateLimit.Burst,
			TrustedProxies: cfg.Server.TrustedProxies,
		}))
	}
	gateway.RegisterDefaultHandlers(srv, gateway.HandlerDeps{
		Sessions: sessions,
		Bus:      bus,
		Logger:   log,
	})
	gateway.RegisterSiteHandlers(srv, gateway.SiteDeps{
		Visitors: db,
		Sessions: sessions,
	})

	// 9. Janitor
	if cfg.Janitor.Enabled {
		j := janitor.New(cfg.Janitor, db, sessions, cfg.Canvas.SessionIdleTimeout, log)
		if err := j.Start(ctx); err != nil {
			return fmt.Errorf("janitor: %w", err)
		}
		defer j.Stop()
	}

	log.Info("sketchbook starting",
		"addr", cfg.Server.Addr,
		"canvas", fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height),
		"model", cfg.LLM.Model,
		"store", cfg.Store.Path,
	)

	return srv.Start(ctx)
}
