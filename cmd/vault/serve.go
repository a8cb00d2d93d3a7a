package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/congo-pay/payout_vault/internal/config"
	"github.com/congo-pay/payout_vault/internal/events"
	"github.com/congo-pay/payout_vault/internal/infra"
	"github.com/congo-pay/payout_vault/internal/logging"
	"github.com/congo-pay/payout_vault/internal/routes"
	"github.com/congo-pay/payout_vault/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.LogLevel, slog.String("app", cfg.AppName), slog.String("env", cfg.AppEnv))
	deps := routes.Deps{Cfg: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		deps.DB = pool

		sqlDB, err := infra.OpenSQL(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := infra.Migrate(sqlDB); err != nil {
			return err
		}
		deps.SQL = sqlDB
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer cache.Close()
		deps.Cache = cache
	}

	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		deps.NATS = nc
	}

	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.Address()),
			slog.Duration("payout_interval", cfg.PayoutInterval))
		errCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}
