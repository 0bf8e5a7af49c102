package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/claritypixel/pixel-health/internal/api"
	"github.com/claritypixel/pixel-health/internal/engine"
	"github.com/claritypixel/pixel-health/internal/metrics"
	"github.com/claritypixel/pixel-health/internal/models"
	"github.com/claritypixel/pixel-health/internal/utils"
)

// Operation names used in logs and metrics.
const (
	OpHealth = "health"
	OpAlerts = "alerts"
	OpReport = "report"
)

// Evaluator is the engine surface the service drives.
type Evaluator interface {
	Health(ctx context.Context, settings engine.Settings, websiteID string, now time.Time) ([]models.HealthStatus, error)
	GenerateAlerts(ctx context.Context, settings engine.Settings, websiteID string, now time.Time) ([]models.Alert, error)
	Report(ctx context.Context, settings engine.Settings, websiteID string, now time.Time) (models.Report, error)
}

// HealthService implements the gRPC EventHealth service.
type HealthService struct {
	logger    *slog.Logger
	evaluator Evaluator
	settings  atomic.Pointer[engine.Settings]
	clock     func() time.Time
	timeout   time.Duration
	latencies *utils.LatencyTracker
}

// Option customises a HealthService.
type Option func(*HealthService)

// WithClock overrides the evaluation clock.
func WithClock(clock func() time.Time) Option {
	return func(s *HealthService) { s.clock = clock }
}

// WithRequestTimeout bounds every evaluation.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *HealthService) { s.timeout = d }
}

// NewHealthService constructs the service facade.
func NewHealthService(logger *slog.Logger, evaluator Evaluator, settings engine.Settings, opts ...Option) (*HealthService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	s := &HealthService{
		logger:    logger,
		evaluator: evaluator,
		clock:     time.Now,
		latencies: utils.NewLatencyTracker(1024),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.UpdateSettings(settings); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSettings swaps the settings used by subsequent evaluations.
// In-flight evaluations keep the snapshot they started with.
func (s *HealthService) UpdateSettings(settings engine.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid health settings: %w", err)
	}
	snapshot := settings.Clone()
	s.settings.Store(&snapshot)
	return nil
}

// Settings returns the current settings snapshot.
func (s *HealthService) Settings() engine.Settings {
	return s.settings.Load().Clone()
}

// GetHealth returns the per-event-type health view.
func (s *HealthService) GetHealth(ctx context.Context, req *api.HealthRequest) (*api.HealthResponse, error) {
	websiteID, err := api.WebsiteIDFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var statuses []models.HealthStatus
	evalID, now, err := s.evaluate(ctx, OpHealth, websiteID, func(ctx context.Context, settings engine.Settings, now time.Time) error {
		var err error
		statuses, err = s.evaluator.Health(ctx, settings, websiteID, now)
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return api.ToWireHealthResponse(websiteID, evalID, now, statuses), nil
}

// GetAlerts returns the current alert list.
func (s *HealthService) GetAlerts(ctx context.Context, req *api.HealthRequest) (*api.AlertsResponse, error) {
	websiteID, err := api.WebsiteIDFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var alerts []models.Alert
	evalID, now, err := s.evaluate(ctx, OpAlerts, websiteID, func(ctx context.Context, settings engine.Settings, now time.Time) error {
		var err error
		alerts, err = s.evaluator.GenerateAlerts(ctx, settings, websiteID, now)
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	recordAlerts(alerts)
	return api.ToWireAlertsResponse(websiteID, evalID, now, alerts), nil
}

// GetReport returns health and alerts evaluated at the same instant.
func (s *HealthService) GetReport(ctx context.Context, req *api.HealthRequest) (*api.ReportResponse, error) {
	websiteID, err := api.WebsiteIDFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var report models.Report
	evalID, _, err := s.evaluate(ctx, OpReport, websiteID, func(ctx context.Context, settings engine.Settings, now time.Time) error {
		var err error
		report, err = s.evaluator.Report(ctx, settings, websiteID, now)
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	recordAlerts(report.Alerts)
	return api.ToWireReport(evalID, report), nil
}

// LatencyP95 returns the current p95 evaluation latency.
func (s *HealthService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *HealthService) evaluate(ctx context.Context, op, websiteID string, fn func(context.Context, engine.Settings, time.Time) error) (string, time.Time, error) {
	evalID := uuid.NewString()
	now := s.clock().UTC()
	settings := s.Settings()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With(slog.String("op", op), slog.String("website_id", websiteID), slog.String("evaluation_id", evalID))
	start := time.Now()
	err := fn(ctx, settings, now)
	duration := time.Since(start)

	outcome := outcomeFor(err)
	metrics.ObserveEvaluation(op, duration, outcome)
	switch outcome {
	case metrics.OutcomeSuccess:
		s.latencies.Observe(duration)
		logger.Debug("evaluation complete", slog.Duration("duration", duration))
		if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
			logger.Info("evaluation latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
		}
	case metrics.OutcomeInvalid:
		logger.Debug("evaluation rejected", slog.Any("error", err))
	case metrics.OutcomeCancelled:
		logger.Warn("evaluation cancelled", slog.Duration("duration", duration), slog.Any("error", err))
	default:
		logger.Error("evaluation failed", slog.Duration("duration", duration), slog.Any("error", err))
	}
	return evalID, now, err
}

func recordAlerts(alerts []models.Alert) {
	for _, a := range alerts {
		metrics.AlertEmitted(a.ID)
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, utils.ErrInvalidArgument):
		return metrics.OutcomeInvalid
	case errors.Is(err, utils.ErrUpstreamUnavailable):
		return metrics.OutcomeError
	case errors.Is(err, utils.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}

// toStatus maps engine errors onto gRPC status codes. A store that timed out
// is Unavailable even though its error wraps a deadline.
func toStatus(err error) error {
	switch {
	case errors.Is(err, utils.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, utils.ErrUpstreamUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, utils.ErrCancelled), errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, "evaluation failed")
	}
}
