package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// DefaultQueryPath is the event log service's query endpoint.
const DefaultQueryPath = "/api/v1/events/query"

// EventLogClient reads the event log from a remote collector over HTTP.
type EventLogClient struct {
	baseURL    string
	queryPath  string
	httpClient *http.Client
}

// NewEventLogClient constructs a client targeting the collector at baseURL.
func NewEventLogClient(baseURL, queryPath string, timeout time.Duration) *EventLogClient {
	if queryPath == "" {
		queryPath = DefaultQueryPath
	}
	return &EventLogClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		queryPath: queryPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type eventQueryRequest struct {
	WebsiteID  string   `json:"website_id"`
	EventNames []string `json:"event_names,omitempty"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

type eventQueryResponse struct {
	Events []models.EventRecord `json:"events"`
}

// QueryEvents asks the collector for the website's records received in [start, end].
func (c *EventLogClient) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("event log client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("event log base URL not configured")
	}

	payload := eventQueryRequest{
		WebsiteID:  websiteID,
		EventNames: names,
		Start:      start.UTC().Format(time.RFC3339Nano),
		End:        end.UTC().Format(time.RFC3339Nano),
	}
	var response eventQueryResponse
	if err := c.postJSON(ctx, c.resolvePath(c.queryPath), payload, &response); err != nil {
		return nil, fmt.Errorf("event log query failed: %w", err)
	}

	// Records are returned as sent. One without a website_id belongs to no
	// website and is dropped by the engine's scoping.
	records := make([]models.EventRecord, 0, len(response.Events))
	for _, rec := range response.Events {
		rec.ReceivedAt = rec.ReceivedAt.UTC()
		records = append(records, rec)
	}
	return records, nil
}

// Backend names the store in metrics and logs.
func (c *EventLogClient) Backend() string { return DriverHTTP }

// Close releases idle connections.
func (c *EventLogClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *EventLogClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *EventLogClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("event log returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
