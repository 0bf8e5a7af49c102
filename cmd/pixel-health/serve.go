package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/claritypixel/pixel-health/internal/api"
	"github.com/claritypixel/pixel-health/internal/config"
	"github.com/claritypixel/pixel-health/internal/engine"
	"github.com/claritypixel/pixel-health/internal/metrics"
	"github.com/claritypixel/pixel-health/internal/repo"
	"github.com/claritypixel/pixel-health/internal/services"
	"github.com/claritypixel/pixel-health/internal/utils"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the EventHealth gRPC API and HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func storeOptions(cfg config.StoreConfig) repo.Options {
	return repo.Options{
		Driver:      cfg.Driver,
		DSN:         cfg.DSN,
		Table:       cfg.Table,
		Timeout:     cfg.Timeout,
		BaseURL:     cfg.BaseURL,
		QueryPath:   cfg.QueryPath,
		AutoMigrate: cfg.AutoMigrate,
		SeedFile:    cfg.SeedFile,
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting pixel-health",
		slog.String("grpc_address", cfg.Server.GRPCAddress),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("store", cfg.Store.Driver))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repo.Open(ctx, storeOptions(cfg.Store), logger)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	hints, err := engine.NewHintBook(cfg.Hints.Path, logger)
	if err != nil {
		return fmt.Errorf("load hint book: %w", err)
	}

	eng := engine.New(logger, store, hints)
	svc, err := services.NewHealthService(logger, eng, cfg.Health, services.WithRequestTimeout(cfg.Server.RequestTimeout))
	if err != nil {
		return err
	}

	if path := resolvedConfigPath(configPath); path != "" {
		watcher := config.NewWatcher(path, cfg.Health, logger)
		watcher.OnChange(func(s engine.Settings) {
			if err := svc.UpdateSettings(s); err != nil {
				logger.Warn("settings update rejected", slog.Any("error", err))
			}
		})
		stopWatch, err := watcher.Watch()
		if err != nil {
			logger.Warn("config hot reload disabled", slog.Any("error", err))
		} else {
			defer stopWatch()
		}
	}

	server, err := api.NewServer(cfg.Server, svc)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if err := server.Start(); err != nil {
			return fmt.Errorf("gRPC server exited: %w", err)
		}
		return nil
	})
	if cfg.Server.HTTPAddress != "" {
		g.Go(func() error {
			logger.Info("HTTP gateway listening", slog.String("address", cfg.Server.HTTPAddress))
			handler := api.NewGateway(svc, prometheus.DefaultGatherer, logger)
			return api.ListenAndServe(gctx, cfg.Server.HTTPAddress, handler, cfg.Server.GracefulTimeout)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
		return nil
	})

	err = g.Wait()
	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("pixel-health stopped", slog.Duration("p95_latency", svc.LatencyP95()))
	return err
}
