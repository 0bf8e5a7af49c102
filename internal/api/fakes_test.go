package api

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// fakeService answers every call from canned values; err, when set, is returned instead.
type fakeService struct {
	err      error
	lastSite string
}

func (f *fakeService) GetHealth(ctx context.Context, req *HealthRequest) (*HealthResponse, error) {
	f.lastSite = req.WebsiteID
	if f.err != nil {
		return nil, f.err
	}
	return &HealthResponse{
		WebsiteID:   req.WebsiteID,
		EvaluatedAt: testNow,
		Events: []EventHealth{
			{EventName: "PageView", Status: "healthy", QualityScore: 7.0, LastReceived: testNow.Add(-time.Minute)},
			{EventName: "AddToCart", Status: "error", NeverSeen: true},
		},
	}, nil
}

func (f *fakeService) GetAlerts(ctx context.Context, req *HealthRequest) (*AlertsResponse, error) {
	f.lastSite = req.WebsiteID
	if f.err != nil {
		return nil, f.err
	}
	return &AlertsResponse{WebsiteID: req.WebsiteID, EvaluatedAt: testNow, Alerts: []Alert{}}, nil
}

func (f *fakeService) GetReport(ctx context.Context, req *HealthRequest) (*ReportResponse, error) {
	f.lastSite = req.WebsiteID
	if f.err != nil {
		return nil, f.err
	}
	if req.WebsiteID == "" {
		return nil, status.Error(codes.InvalidArgument, "website_id is required")
	}
	return &ReportResponse{
		WebsiteID:   req.WebsiteID,
		EvaluatedAt: testNow,
		Health:      []EventHealth{},
		Alerts:      []Alert{{ID: "duplicate-events", Severity: "warning", Timestamp: testNow}},
	}, nil
}
