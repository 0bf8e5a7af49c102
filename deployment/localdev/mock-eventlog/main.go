package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
	"github.com/claritypixel/pixel-health/internal/repo"
)

type queryRequest struct {
	WebsiteID  string   `json:"website_id"`
	EventNames []string `json:"event_names"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	seed := flag.String("seed", "", "JSON array of events to serve instead of the synthetic site")
	flag.Parse()

	logger := log.New(log.Writer(), "eventlog-mock ", log.LstdFlags|log.Lmicroseconds)

	store := repo.NewMemoryStore()
	if *seed != "" {
		if err := store.LoadFile(*seed); err != nil {
			logger.Fatalf("load seed: %v", err)
		}
	} else {
		store.Append(syntheticEvents("demo-shop", time.Now().UTC())...)
	}
	logger.Printf("serving %d events", store.Len())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc(repo.DefaultQueryPath, func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
			return
		}
		start, err := time.Parse(time.RFC3339Nano, req.Start)
		if err != nil {
			http.Error(w, "start must be RFC3339", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(time.RFC3339Nano, req.End)
		if err != nil {
			http.Error(w, "end must be RFC3339", http.StatusBadRequest)
			return
		}
		events, err := store.QueryEvents(r.Context(), req.WebsiteID, req.EventNames, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"events": events})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// syntheticEvents describes a shop with a duplicated purchase and checkout
// events that arrive without an identity signal.
func syntheticEvents(websiteID string, now time.Time) []models.EventRecord {
	return []models.EventRecord{
		{WebsiteID: websiteID, EventName: "PageView", EventID: "pv-1001", ReceivedAt: now.Add(-2 * time.Minute), IdentityPresent: true},
		{WebsiteID: websiteID, EventName: "PageView", EventID: "pv-1002", ReceivedAt: now.Add(-1 * time.Minute)},
		{WebsiteID: websiteID, EventName: "AddToCart", EventID: "atc-77", ReceivedAt: now.Add(-5 * time.Hour)},
		{WebsiteID: websiteID, EventName: "InitiateCheckout", EventID: "ic-31", ReceivedAt: now.Add(-6 * time.Hour)},
		{WebsiteID: websiteID, EventName: "Purchase", EventID: "order-5521", ReceivedAt: now.Add(-20 * time.Minute), IdentityPresent: true},
		{WebsiteID: websiteID, EventName: "Purchase", EventID: "order-5521", ReceivedAt: now.Add(-19 * time.Minute), IdentityPresent: true},
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
