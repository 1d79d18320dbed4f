package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/datamaster/internal/config"
	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/pgsource"
	"github.com/JonMunkholm/datamaster/internal/web"
)

func main() {
	// Overload lets a local .env win over inherited variables.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	opts := core.Options{
		MaxTables:      cfg.Workspace.MaxTables,
		MaxRows:        cfg.Workspace.MaxRows,
		MaxUploadBytes: cfg.Workspace.MaxUploadBytes,
		HistorySize:    cfg.Workspace.HistorySize,
		Limiter:        core.NewLoadLimiter(cfg.Workspace.MaxConcurrentLoads, cfg.Workspace.LoadWaitTime),
	}

	if cfg.Database.Enabled() {
		pool, err := connect(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		opts.Importer = pgsource.New(pool, pgsource.WithTimeout(cfg.Database.ImportTimeout))
		slog.Info("database import enabled")
	} else {
		slog.Info("database import disabled, DATABASE_URL not set")
	}

	service := core.NewService(opts)
	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartEvictionScheduler(jobCtx, core.EvictionConfig{
		IdleTTL:       cfg.Workspace.IdleTTL,
		CheckInterval: cfg.Workspace.EvictInterval,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for loads to finish", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("loads did not finish in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("connected to database", "database", poolConfig.ConnConfig.Database)
	return pool, nil
}
