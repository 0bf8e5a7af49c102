package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claritypixel/pixel-health/internal/models"
	"github.com/claritypixel/pixel-health/internal/utils"
)

// GenerateAlerts evaluates the duplicate and checkout-quality conditions.
//
// Both log store reads run concurrently and the result is assembled only after
// both succeed. At most one alert per kind is produced; the duplicate alert
// always precedes the quality alert.
func (e *Engine) GenerateAlerts(ctx context.Context, settings Settings, websiteID string, now time.Time) ([]models.Alert, error) {
	const op = "generate_alerts"
	if err := ValidateWebsiteID(websiteID); err != nil {
		return nil, err
	}

	var (
		duplicates []models.DuplicateGroup
		checkout   []models.EventSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		duplicates, err = e.duplicateGroups(gctx, websiteID, settings.DuplicateWindow, now)
		return err
	})
	g.Go(func() error {
		var err error
		checkout, err = e.Summarize(gctx, websiteID, settings.QualityWindow, now, settings.CheckoutEvent)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, utils.Cancelled(op, ctx)
		}
		return nil, err
	}

	alerts := make([]models.Alert, 0, 2)
	if alert, ok := duplicateAlert(duplicates, settings); ok {
		alerts = append(alerts, alert)
	}
	if alert, ok := checkoutQualityAlert(checkout, now, settings); ok {
		alerts = append(alerts, alert)
	}

	for i := range alerts {
		alerts[i].Hints = e.hints.Hints(alerts[i])
		e.logger.Debug("alert raised",
			slog.String("website_id", websiteID),
			slog.String("alert_id", alerts[i].ID),
			slog.String("severity", string(alerts[i].Severity)))
	}
	return alerts, nil
}

// duplicateAlert collapses every duplicate group into a single alert.
func duplicateAlert(groups []models.DuplicateGroup, settings Settings) (models.Alert, bool) {
	if len(groups) == 0 {
		return models.Alert{}, false
	}

	observed := groups[0].LastReceived
	for _, g := range groups[1:] {
		if g.LastReceived.After(observed) {
			observed = g.LastReceived
		}
	}

	noun := "event IDs were"
	if len(groups) == 1 {
		noun = "event ID was"
	}
	return models.Alert{
		ID:       models.AlertIDDuplicateEvents,
		Severity: models.SeverityError,
		Title:    "Duplicate events detected",
		Message: fmt.Sprintf("%d %s received more than once in the last %s (e.g. %q). Duplicates inflate conversion counts on ad platforms.",
			len(groups), noun, utils.HumanDuration(settings.DuplicateWindow), groups[0].EventID),
		Timestamp: observed,
	}, true
}

// checkoutQualityAlert fires when the checkout event was seen but scores below
// the threshold. A checkout event absent from the window raises nothing here.
func checkoutQualityAlert(summaries []models.EventSummary, now time.Time, settings Settings) (models.Alert, bool) {
	for _, summary := range summaries {
		if summary.EventName != settings.CheckoutEvent {
			continue
		}
		health := Classify(summary, now, settings)
		if health.QualityScore >= settings.QualityAlertThreshold {
			return models.Alert{}, false
		}
		return models.Alert{
			ID:       models.AlertIDLowQualityCheckout,
			Severity: models.SeverityWarning,
			Title:    "Low quality checkout events",
			Message: fmt.Sprintf("%s events scored %.1f (status %s) over the last %s, below the %.1f quality threshold.",
				summary.EventName, health.QualityScore, health.Status,
				utils.HumanDuration(settings.QualityWindow), settings.QualityAlertThreshold),
			Timestamp: summary.LastReceived,
		}, true
	}
	return models.Alert{}, false
}
