// Package client is the HTTP client the cashbeat CLI uses to talk to a
// running daemon.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/events"
	"github.com/pulseworks/cashbeat/internal/health"
	"github.com/pulseworks/cashbeat/internal/ledger"
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to a cashbeat daemon over HTTP/JSON.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client targeting the given base URL (e.g.
// "http://localhost:8080"). When token is non-empty, an Authorization header
// is set on every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// HealthResponse is the body of GET /v1/health.
type HealthResponse struct {
	Status   string          `json:"status"`
	Services []health.Record `json:"services"`
}

// AccountsResponse is the body of GET /v1/accounts.
type AccountsResponse struct {
	Accounts   []ledger.AccountBalance `json:"accounts"`
	TotalCents int64                   `json:"total_cents"`
}

// Metrics fetches the dispatcher metrics snapshot.
func (c *Client) Metrics(ctx context.Context) (*bus.Metrics, error) {
	var m bus.Metrics
	if err := c.doJSON(ctx, http.MethodGet, "/v1/metrics", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Health fetches the full service health snapshot.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var h HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ServiceHealth fetches one service's health record.
func (c *Client) ServiceHealth(ctx context.Context, name string) (*health.Record, error) {
	var r health.Record
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health/"+url.PathEscape(name), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Accounts fetches account balances and the portfolio total.
func (c *Client) Accounts(ctx context.Context) (*AccountsResponse, error) {
	var a AccountsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/accounts", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Transactions fetches up to limit recent transactions, newest first.
// limit <= 0 uses the server default.
func (c *Client) Transactions(ctx context.Context, limit int) ([]events.Transaction, error) {
	path := "/v1/transactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Transactions []events.Transaction `json:"transactions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// Anomalies fetches up to limit recent anomalies, newest first.
func (c *Client) Anomalies(ctx context.Context, limit int) ([]events.Anomaly, error) {
	path := "/v1/anomalies"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Anomalies []events.Anomaly `json:"anomalies"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Anomalies, nil
}

// Forecast fetches the latest cash-flow forecast.
func (c *Client) Forecast(ctx context.Context) (*events.ForecastUpdate, error) {
	var f events.ForecastUpdate
	if err := c.doJSON(ctx, http.MethodGet, "/v1/forecast", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// PublishEvent injects an event into the daemon's bus.
func (c *Client) PublishEvent(ctx context.Context, topic string, payload json.RawMessage, source string) error {
	body := map[string]any{"topic": topic, "payload": payload}
	if source != "" {
		body["source"] = source
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/events", body, nil)
}

// StreamEvent is one event received from the SSE stream.
type StreamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// StreamEvents tails the daemon's SSE feed, invoking fn for each event until
// ctx is cancelled or the connection drops. topics filters the stream with
// NATS-style patterns; empty means all topics.
func (c *Client) StreamEvents(ctx context.Context, topics []string, fn func(StreamEvent) error) error {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	var evt StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if evt.Topic != "" || len(evt.Data) > 0 {
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt = StreamEvent{}
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "id:"):
			if id, err := strconv.ParseUint(strings.TrimPrefix(line, "id:"), 10, 64); err == nil {
				evt.ID = id
			}
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			evt.Data = []byte(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
