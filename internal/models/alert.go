package models

import "time"

// Severity captures alert impact.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert IDs are fixed per alert kind so callers can key on them.
const (
	AlertIDDuplicateEvents    = "duplicate-events"
	AlertIDLowQualityCheckout = "low-quality-checkout"
)

// Alert is an actionable finding derived from the event log.
type Alert struct {
	ID        string
	Severity  Severity
	Title     string
	Message   string
	Timestamp time.Time
	Hints     []string
}

// Report bundles the health view and alert list evaluated at the same instant.
type Report struct {
	WebsiteID   string
	EvaluatedAt time.Time
	Health      []HealthStatus
	Alerts      []Alert
}
