package api

import (
	"fmt"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// WebsiteIDFromRequest extracts the website id from a transport request.
func WebsiteIDFromRequest(req *HealthRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	return req.WebsiteID, nil
}

// ToWireHealth converts classified statuses, keeping their order.
func ToWireHealth(statuses []models.HealthStatus) []EventHealth {
	out := make([]EventHealth, 0, len(statuses))
	for _, s := range statuses {
		wire := EventHealth{
			EventName:    s.EventName,
			Status:       string(s.Status),
			QualityScore: s.QualityScore,
			NeverSeen:    s.NeverSeen(),
		}
		if s.LastReceived != nil {
			wire.LastReceived = s.LastReceived.UTC()
		}
		out = append(out, wire)
	}
	return out
}

// ToWireAlerts converts alerts, keeping their order.
func ToWireAlerts(alerts []models.Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, Alert{
			ID:        a.ID,
			Severity:  string(a.Severity),
			Title:     a.Title,
			Message:   a.Message,
			Timestamp: a.Timestamp.UTC(),
			Hints:     append([]string(nil), a.Hints...),
		})
	}
	return out
}

// ToWireHealthResponse wraps a health view evaluated at evaluatedAt.
func ToWireHealthResponse(websiteID, evaluationID string, evaluatedAt time.Time, statuses []models.HealthStatus) *HealthResponse {
	return &HealthResponse{
		WebsiteID:    websiteID,
		EvaluationID: evaluationID,
		EvaluatedAt:  evaluatedAt.UTC(),
		Events:       ToWireHealth(statuses),
	}
}

// ToWireAlertsResponse wraps an alert list evaluated at evaluatedAt.
func ToWireAlertsResponse(websiteID, evaluationID string, evaluatedAt time.Time, alerts []models.Alert) *AlertsResponse {
	return &AlertsResponse{
		WebsiteID:    websiteID,
		EvaluationID: evaluationID,
		EvaluatedAt:  evaluatedAt.UTC(),
		Alerts:       ToWireAlerts(alerts),
	}
}

// ToWireReport converts a combined report.
func ToWireReport(evaluationID string, report models.Report) *ReportResponse {
	return &ReportResponse{
		WebsiteID:    report.WebsiteID,
		EvaluationID: evaluationID,
		EvaluatedAt:  report.EvaluatedAt.UTC(),
		Health:       ToWireHealth(report.Health),
		Alerts:       ToWireAlerts(report.Alerts),
	}
}
