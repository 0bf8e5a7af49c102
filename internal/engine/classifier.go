package engine

import (
	"math"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// Classify maps a summary onto a status tier and a quality score.
//
// The score is an additive heuristic, not a match-rate measurement: a base
// score, a bonus for freshness and a bonus when an identity signal was seen.
// An age below zero means last_received lies after now; that only happens with
// clock skew or a bad caller-supplied now, and is reported as an error.
func Classify(summary models.EventSummary, now time.Time, settings Settings) models.HealthStatus {
	age := now.Sub(summary.LastReceived)
	status := statusForAge(age, settings)
	last := summary.LastReceived
	return models.HealthStatus{
		EventName:    summary.EventName,
		Status:       status,
		QualityScore: QualityScore(status, summary.IdentityPresent, settings),
		LastReceived: &last,
	}
}

// ClassifyMissing describes an event type with no records in the window.
func ClassifyMissing(eventName string) models.HealthStatus {
	return models.HealthStatus{
		EventName:    eventName,
		Status:       models.StatusError,
		QualityScore: 0,
	}
}

func statusForAge(age time.Duration, settings Settings) models.Status {
	switch {
	case age < 0:
		return models.StatusError
	case age <= settings.WarningAge:
		return models.StatusHealthy
	case age <= settings.ErrorAge:
		return models.StatusWarning
	default:
		return models.StatusError
	}
}

// QualityScore applies the additive heuristic, rounded to one decimal and clamped to [0, MaxScore].
func QualityScore(status models.Status, identityPresent bool, settings Settings) float64 {
	score := settings.BaseScore
	switch status {
	case models.StatusHealthy:
		score += settings.HealthyBonus
	case models.StatusWarning:
		score += settings.WarningBonus
	default:
		score += settings.ErrorBonus
	}
	if identityPresent {
		score += settings.IdentityBonus
	}
	return clamp(math.Round(score*10)/10, 0, settings.MaxScore)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
