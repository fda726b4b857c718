package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeplay/internal/api"
	"codeplay/internal/config"
	"codeplay/internal/monitor"
	"codeplay/internal/proxy"
	"codeplay/internal/runtime"
	"codeplay/internal/sandbox"
	"codeplay/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults")
		cfg = config.DefaultConfig()
	}

	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal().Err(err).Msg("invalid environment overrides")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitor.NewMetrics()

	client := sandbox.NewClient(cfg.Sandbox.URL, cfg.Sandbox.RequestTimeout, sandbox.WithTracer(monitor.NewTracer()))

	// Initialize database (optional, runs without it for development)
	var db *storage.DB
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, audit logging disabled")
			db = nil
		} else {
			defer db.Close()
		}
	}

	var auditWriter *storage.AuditWriter
	if db != nil {
		auditWriter = storage.NewAuditWriter(db, cfg.Database.AuditBuffer)
		auditWriter.Start()
		defer auditWriter.Flush(10 * time.Second)
	}

	server, err := api.NewServer(cfg, client, db, auditWriter, metrics, proxy.WithTransport(client.Transport()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	// Provisioning runs in the background; the server accepts requests
	// immediately and sandbox errors surface per request until it is ready.
	if cfg.Provision.Enabled {
		go func() {
			pctx, pcancel := context.WithTimeout(ctx, cfg.Provision.Timeout)
			defer pcancel()
			report := sandbox.Provision(pctx, client, runtime.NewRegistry().Packages())
			if report.Reachable {
				metrics.RecordProvision(len(report.Installed), len(report.Failed))
			}
		}()
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		cancel()
	}()

	log.Info().
		Str("addr", cfg.Address()).
		Str("sandbox", cfg.Sandbox.URL).
		Bool("db_enabled", db != nil).
		Msg("server starting")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}
