package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/modelrelay/modelrelay/internal/backend"
	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/generator"
	"github.com/modelrelay/modelrelay/internal/guardrail"
	"github.com/modelrelay/modelrelay/internal/server"
	"github.com/modelrelay/modelrelay/internal/storage"
	"github.com/modelrelay/modelrelay/internal/storage/memory"
	"github.com/modelrelay/modelrelay/internal/storage/sqlite"
	"github.com/modelrelay/modelrelay/internal/telemetry"
	"github.com/modelrelay/modelrelay/internal/template"
	"github.com/modelrelay/modelrelay/internal/tokens"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer("modelrelay", logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	var store storage.Store
	switch cfg.Storage.Type {
	case "sqlite":
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
	case "memory":
		store = memory.New()
	case "none", "":
	default:
		log.Fatalf("Unknown storage type %q", cfg.Storage.Type)
	}
	if store != nil {
		defer store.Close()
	}

	svc, err := backend.New(backend.Config{
		Type:    cfg.Backend.Type,
		BaseURL: cfg.Backend.BaseURL,
		Model:   cfg.Backend.Model,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create backend: %v", err)
	}

	var screener *guardrail.Screener
	if cfg.Guardrail.Enabled {
		rules := cfg.Guardrail.Rules
		if len(rules) == 0 {
			rules = guardrail.DefaultRules()
		}
		screener, err = guardrail.NewScreener(rules)
		if err != nil {
			log.Fatalf("Failed to compile guardrail rules: %v", err)
		}
		logger.Info("guardrails enabled", slog.Int("rules", len(rules)))
	}

	gen := generator.New(svc, template.NewChatML(),
		generator.WithRetryBudget(cfg.Generator.RetryBudget),
		generator.WithBackoff(cfg.Generator.Backoff),
		generator.WithMaxRounds(cfg.Generator.MaxRounds),
		generator.WithLogger(logger),
	)

	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		Generator:      gen,
		Screener:       screener,
		Store:          store,
		Counter:        tokens.NewTiktokenCounter(),
		BackendName:    cfg.Backend.Type,
		Model:          cfg.Backend.Model,
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("relay started",
		slog.Int("port", cfg.Server.Port),
		slog.String("backend", cfg.Backend.Type),
		slog.String("model", cfg.Backend.Model),
		slog.String("storage", cfg.Storage.Type),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("relay shutdown complete")
}
