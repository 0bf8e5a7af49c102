package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusClientClosedRequest is reported when the caller went away mid-evaluation.
const StatusClientClosedRequest = 499

// Gateway exposes the EventHealth service as JSON over HTTP.
type Gateway struct {
	service EventHealthServer
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewGateway registers the HTTP routes. gatherer backs /metrics; nil uses the
// default registry.
func NewGateway(service EventHealthServer, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	g := &Gateway{service: service, logger: logger, mux: http.NewServeMux()}

	g.mux.HandleFunc("GET /v1/websites/{websiteID}/health", g.health)
	g.mux.HandleFunc("GET /v1/websites/{websiteID}/alerts", g.alerts)
	g.mux.HandleFunc("GET /v1/websites/{websiteID}/report", g.report)
	g.mux.HandleFunc("GET /healthz", g.healthz)
	g.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return loggingMiddleware(logger, g.mux)
}

// GET /v1/websites/{websiteID}/health
func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	resp, err := g.service.GetHealth(r.Context(), &HealthRequest{WebsiteID: r.PathValue("websiteID")})
	g.respond(w, r, resp, err)
}

// GET /v1/websites/{websiteID}/alerts
func (g *Gateway) alerts(w http.ResponseWriter, r *http.Request) {
	resp, err := g.service.GetAlerts(r.Context(), &HealthRequest{WebsiteID: r.PathValue("websiteID")})
	g.respond(w, r, resp, err)
}

// GET /v1/websites/{websiteID}/report
func (g *Gateway) report(w http.ResponseWriter, r *http.Request) {
	resp, err := g.service.GetReport(r.Context(), &HealthRequest{WebsiteID: r.PathValue("websiteID")})
	g.respond(w, r, resp, err)
}

func (g *Gateway) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) respond(w http.ResponseWriter, r *http.Request, resp any, err error) {
	if err != nil {
		st := status.Convert(err)
		code := HTTPStatus(st.Code())
		if code >= http.StatusInternalServerError {
			g.logger.Warn("gateway request failed", slog.String("path", r.URL.Path), slog.Int("status", code), slog.String("error", st.Message()))
		}
		writeError(w, code, st.Message())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HTTPStatus maps a gRPC status code onto the gateway's HTTP status.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		next.ServeHTTP(rec, r)
		logger.LogAttrs(context.Background(), slog.LevelDebug, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(began)))
	})
}

// ListenAndServe runs handler on addr until ctx is cancelled, then drains
// connections for at most grace.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
