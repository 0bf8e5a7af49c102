package api

import "time"

// HealthRequest identifies the website to evaluate.
type HealthRequest struct {
	WebsiteID string `json:"website_id"`
}

// EventHealth is the wire form of one classified event type. A type with no
// records in the window carries the zero timestamp and NeverSeen set.
type EventHealth struct {
	EventName    string    `json:"event_name"`
	Status       string    `json:"status"`
	QualityScore float64   `json:"quality_score"`
	LastReceived time.Time `json:"last_received"`
	NeverSeen    bool      `json:"never_seen"`
}

// Alert is the wire form of an actionable finding.
type Alert struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Hints     []string  `json:"hints,omitempty"`
}

// HealthResponse answers GetHealth.
type HealthResponse struct {
	WebsiteID    string        `json:"website_id"`
	EvaluationID string        `json:"evaluation_id"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Events       []EventHealth `json:"events"`
}

// AlertsResponse answers GetAlerts.
type AlertsResponse struct {
	WebsiteID    string    `json:"website_id"`
	EvaluationID string    `json:"evaluation_id"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
	Alerts       []Alert   `json:"alerts"`
}

// ReportResponse answers GetReport.
type ReportResponse struct {
	WebsiteID    string        `json:"website_id"`
	EvaluationID string        `json:"evaluation_id"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Health       []EventHealth `json:"health"`
	Alerts       []Alert       `json:"alerts"`
}
