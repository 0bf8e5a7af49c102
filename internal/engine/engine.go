package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claritypixel/pixel-health/internal/models"
	"github.com/claritypixel/pixel-health/internal/utils"
)

// EventStore is the read side of the website event log.
//
// Implementations return records in no particular order, honour ctx
// cancellation, and treat a nil names slice as "all event names".
type EventStore interface {
	QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error)
}

var websiteIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// Engine evaluates event freshness, quality and duplication for one website at a time.
// It holds no per-evaluation state; concurrent calls are safe.
type Engine struct {
	logger *slog.Logger
	store  EventStore
	hints  *HintBook
}

// New constructs an engine reading from store. A nil hint book disables hints.
func New(logger *slog.Logger, store EventStore, hints *HintBook) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, store: store, hints: hints}
}

// ValidateWebsiteID rejects empty or malformed website identifiers.
func ValidateWebsiteID(websiteID string) error {
	if websiteID == "" {
		return utils.InvalidArgument("validate", "website_id is required")
	}
	if !websiteIDPattern.MatchString(websiteID) {
		return utils.InvalidArgument("validate", fmt.Sprintf("website_id %q is malformed", websiteID))
	}
	return nil
}

func validateWindow(op string, window time.Duration, now time.Time) error {
	if window <= 0 {
		return utils.InvalidArgument(op, fmt.Sprintf("window must be positive, got %s", window))
	}
	if now.IsZero() || now.Unix() < 0 {
		return utils.InvalidArgument(op, "evaluation time must be set")
	}
	return nil
}

// query reads [now-window, now] for websiteID and drops anything the store
// returned outside that scope, so records never cross websites or windows.
func (e *Engine) query(ctx context.Context, op, websiteID string, window time.Duration, now time.Time, names []string) ([]models.EventRecord, error) {
	if err := ValidateWebsiteID(websiteID); err != nil {
		return nil, err
	}
	if err := validateWindow(op, window, now); err != nil {
		return nil, err
	}
	if e.store == nil {
		return nil, utils.NewAppError(op, utils.ErrUpstreamUnavailable, "event store not configured", nil)
	}
	if ctx.Err() != nil {
		return nil, utils.Cancelled(op, ctx)
	}

	start, end := utils.Window(now, window)
	records, err := e.store.QueryEvents(ctx, websiteID, names, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return nil, utils.Cancelled(op, ctx)
		}
		return nil, utils.Upstream(op, err)
	}
	if ctx.Err() != nil {
		return nil, utils.Cancelled(op, ctx)
	}

	kept := records[:0:0]
	for _, rec := range records {
		if rec.WebsiteID != websiteID {
			continue
		}
		if !utils.InWindow(rec.ReceivedAt, start, end) {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, rec.EventName) {
			continue
		}
		kept = append(kept, rec)
	}
	if dropped := len(records) - len(kept); dropped > 0 {
		e.logger.Debug("dropped out-of-scope records",
			slog.String("op", op),
			slog.String("website_id", websiteID),
			slog.Int("dropped", dropped))
	}
	return kept, nil
}

// Health classifies every standard event type over the health window.
// Types with no records in the window are reported as missing.
func (e *Engine) Health(ctx context.Context, settings Settings, websiteID string, now time.Time) ([]models.HealthStatus, error) {
	summaries, err := e.Summarize(ctx, websiteID, settings.HealthWindow, now, settings.StandardEvents...)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]models.EventSummary, len(summaries))
	for _, s := range summaries {
		byName[s.EventName] = s
	}

	statuses := make([]models.HealthStatus, 0, len(settings.StandardEvents))
	for _, name := range settings.StandardEvents {
		summary, ok := byName[name]
		if !ok {
			statuses = append(statuses, ClassifyMissing(name))
			continue
		}
		statuses = append(statuses, Classify(summary, now, settings))
	}
	return statuses, nil
}

// Report evaluates the health view and the alert list concurrently at the same instant.
func (e *Engine) Report(ctx context.Context, settings Settings, websiteID string, now time.Time) (models.Report, error) {
	const op = "report"
	if err := ValidateWebsiteID(websiteID); err != nil {
		return models.Report{}, err
	}

	var (
		health []models.HealthStatus
		alerts []models.Alert
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		health, err = e.Health(gctx, settings, websiteID, now)
		return err
	})
	g.Go(func() error {
		var err error
		alerts, err = e.GenerateAlerts(gctx, settings, websiteID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return models.Report{}, utils.Cancelled(op, ctx)
		}
		return models.Report{}, err
	}

	return models.Report{
		WebsiteID:   websiteID,
		EvaluatedAt: now,
		Health:      health,
		Alerts:      alerts,
	}, nil
}
