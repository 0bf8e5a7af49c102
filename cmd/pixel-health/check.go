package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/claritypixel/pixel-health/internal/api"
	"github.com/claritypixel/pixel-health/internal/config"
	"github.com/claritypixel/pixel-health/internal/engine"
	"github.com/claritypixel/pixel-health/internal/repo"
	"github.com/claritypixel/pixel-health/internal/services"
	"github.com/claritypixel/pixel-health/internal/utils"
)

type checkOptions struct {
	websiteID string
	now       string
	file      string
}

func newCheckCmd(configPath *string) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate one website once and print the report as JSON",
		Example: `  pixel-health check --website shop-42
  pixel-health check --website shop-42 --file events.json --now 2026-03-14T12:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), *configPath, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.websiteID, "website", "", "Website to evaluate")
	cmd.Flags().StringVar(&opts.now, "now", "", "Evaluation time (RFC3339); defaults to the current time")
	cmd.Flags().StringVar(&opts.file, "file", "", "Read events from a JSON array instead of the configured store")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}

func runCheck(ctx context.Context, configPath string, opts checkOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLoggerTo(errOut, cfg.Logging.Level, cfg.Logging.JSON)

	clock := time.Now
	if opts.now != "" {
		at, err := utils.ParseRFC3339(opts.now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		clock = func() time.Time { return at }
	}

	var store repo.Store
	if opts.file != "" {
		mem := repo.NewMemoryStore()
		if err := mem.LoadFile(opts.file); err != nil {
			return err
		}
		store = repo.Instrument(mem)
	} else {
		store, err = repo.Open(ctx, storeOptions(cfg.Store), logger)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
	}
	defer store.Close()

	hints, err := engine.NewHintBook(cfg.Hints.Path, logger)
	if err != nil {
		return fmt.Errorf("load hint book: %w", err)
	}
	svc, err := services.NewHealthService(logger, engine.New(logger, store, hints), cfg.Health,
		services.WithClock(clock),
		services.WithRequestTimeout(cfg.Server.RequestTimeout))
	if err != nil {
		return err
	}

	report, err := svc.GetReport(ctx, &api.HealthRequest{WebsiteID: opts.websiteID})
	if err != nil {
		return err
	}
	logger.Debug("check complete", slog.String("website_id", opts.websiteID), slog.Int("alerts", len(report.Alerts)))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// resolvedConfigPath returns the config file the service was started from, if any.
func resolvedConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(config.EnvPrefix + "CONFIG"); v != "" {
		return v
	}
	return ""
}
