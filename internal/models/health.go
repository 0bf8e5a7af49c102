package models

import "time"

// Status is the freshness tier of an event type.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Rank orders statuses from worst (0) to best (2).
func (s Status) Rank() int {
	switch s {
	case StatusHealthy:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// HealthStatus is the classified health of one event type.
type HealthStatus struct {
	EventName    string
	Status       Status
	QualityScore float64
	// LastReceived is nil when the event type was never seen in the window.
	LastReceived *time.Time
}

// NeverSeen reports whether the event type had no records in the window.
func (h HealthStatus) NeverSeen() bool {
	return h.LastReceived == nil
}
