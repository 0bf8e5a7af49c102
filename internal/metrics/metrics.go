package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels evaluations that returned a result.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels requests rejected before any query.
	OutcomeInvalid = "invalid"
	// OutcomeCancelled labels evaluations aborted by the caller.
	OutcomeCancelled = "cancelled"
	// OutcomeError labels evaluations that failed on the log store or internally.
	OutcomeError = "error"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixel_health",
			Name:      "evaluations_total",
			Help:      "Total number of health evaluations, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pixel_health",
			Name:      "evaluation_seconds",
			Help:      "Evaluation latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	storeQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pixel_health",
			Name:      "store_query_seconds",
			Help:      "Event log query latency in seconds, partitioned by backend.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend"},
	)

	storeQueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixel_health",
			Name:      "store_query_errors_total",
			Help:      "Total number of failed event log queries, partitioned by backend.",
		},
		[]string{"backend"},
	)

	alertsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixel_health",
			Name:      "alerts_emitted_total",
			Help:      "Total number of alerts returned to callers, partitioned by alert id.",
		},
		[]string{"alert_id"},
	)

	settingsReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixel_health",
			Name:      "settings_reloads_total",
			Help:      "Total number of settings reload attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches pixel-health collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		storeQueryDurationSeconds,
		storeQueryErrorsTotal,
		alertsEmittedTotal,
		settingsReloadsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation records an evaluation duration and outcome label.
func ObserveEvaluation(operation string, duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeInvalid, OutcomeCancelled:
	default:
		outcome = OutcomeError
	}
	evaluationsTotal.WithLabelValues(operation, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveStoreQuery records a log store round trip.
func ObserveStoreQuery(backend string, duration time.Duration, err error) {
	if duration < 0 {
		duration = 0
	}
	storeQueryDurationSeconds.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		storeQueryErrorsTotal.WithLabelValues(backend).Inc()
	}
}

// AlertEmitted counts an alert returned to a caller.
func AlertEmitted(alertID string) {
	alertsEmittedTotal.WithLabelValues(alertID).Inc()
}

// SettingsReloaded counts a settings reload attempt.
func SettingsReloaded(ok bool) {
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	settingsReloadsTotal.WithLabelValues(outcome).Inc()
}
