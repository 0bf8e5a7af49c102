package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestGateway(svc EventHealthServer) http.Handler {
	return NewGateway(svc, prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGatewayHealth(t *testing.T) {
	svc := &fakeService{}
	rec := httptest.NewRecorder()
	newTestGateway(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/websites/shop-42/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSite != "shop-42" {
		t.Fatalf("path value not forwarded, got %q", svc.lastSite)
	}
	if !strings.Contains(rec.Body.String(), `"last_received":"0001-01-01T00:00:00Z","never_seen":true`) {
		t.Fatalf("never-seen sentinel missing from %s", rec.Body.String())
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].EventName != "PageView" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestGatewayEmptyAlertListIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestGateway(&fakeService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/websites/shop-42/alerts", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"alerts":[]`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGatewayErrorMapping(t *testing.T) {
	cases := []struct {
		code codes.Code
		want int
	}{
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.Unavailable, http.StatusServiceUnavailable},
		{codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{codes.Canceled, StatusClientClosedRequest},
		{codes.Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &fakeService{err: status.Error(tc.code, "boom")}
		rec := httptest.NewRecorder()
		newTestGateway(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/websites/shop-42/report", nil))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.code, tc.want, rec.Code)
		}
		var body errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != "boom" {
			t.Fatalf("%s: unexpected error body %q", tc.code, rec.Body.String())
		}
	}
}

func TestGatewayHealthzAndMetrics(t *testing.T) {
	h := newTestGateway(&fakeService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz returned %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rec.Code)
	}
}

func TestGatewayRejectsUnknownRoutesAndMethods(t *testing.T) {
	h := newTestGateway(&fakeService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/websites/shop-42/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/websites/shop-42/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
