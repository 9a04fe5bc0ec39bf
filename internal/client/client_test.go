package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testHandler captures the incoming request and returns a canned response.
type testHandler struct {
	method string
	path   string
	query  string
	body   string
	auth   string

	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

func newTestClient(h http.Handler, token string) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	return New(srv.URL, token), srv
}

func TestClient_Metrics(t *testing.T) {
	h := &testHandler{
		responseBody: `{"total_published":120,"total_consumed":360,"current_depth":2,"avg_latency_ms":7.4,"throughput_per_sec":3}`,
	}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	m, err := c.Metrics(context.Background())
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/metrics" {
		t.Errorf("request = %s %s, want GET /v1/metrics", h.method, h.path)
	}
	if m.TotalPublished != 120 || m.TotalConsumed != 360 {
		t.Errorf("metrics = %+v", m)
	}
	if m.AvgLatencyMs != 7.4 {
		t.Errorf("AvgLatencyMs = %v, want 7.4", m.AvgLatencyMs)
	}
}

func TestClient_Health(t *testing.T) {
	h := &testHandler{
		responseBody: `{"status":"ok","services":[{"name":"api-gateway","status":"healthy","latency_ms":24,"error_rate_pct":0.2}]}`,
	}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if len(resp.Services) != 1 || resp.Services[0].Name != "api-gateway" {
		t.Errorf("services = %+v", resp.Services)
	}
}

func TestClient_ServiceHealth_PathEscape(t *testing.T) {
	h := &testHandler{
		responseBody: `{"name":"event-bus","status":"healthy"}`,
	}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	if _, err := c.ServiceHealth(context.Background(), "event-bus"); err != nil {
		t.Fatalf("ServiceHealth: %v", err)
	}
	if h.path != "/v1/health/event-bus" {
		t.Errorf("path = %q", h.path)
	}
}

func TestClient_Transactions_Limit(t *testing.T) {
	h := &testHandler{responseBody: `{"transactions":[{"id":"ev-1"}]}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	txs, err := c.Transactions(context.Background(), 5)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if h.query != "limit=5" {
		t.Errorf("query = %q, want limit=5", h.query)
	}
	if len(txs) != 1 || txs[0].ID != "ev-1" {
		t.Errorf("transactions = %+v", txs)
	}
}

func TestClient_PublishEvent(t *testing.T) {
	h := &testHandler{statusCode: http.StatusAccepted, responseBody: `{"status":"published"}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	err := c.PublishEvent(context.Background(), "transactions.new", []byte(`{"id":"ev-x"}`), "cli")
	if err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/events" {
		t.Errorf("request = %s %s, want POST /v1/events", h.method, h.path)
	}
	for _, want := range []string{`"topic":"transactions.new"`, `"id":"ev-x"`, `"source":"cli"`} {
		if !strings.Contains(h.body, want) {
			t.Errorf("body %q missing %q", h.body, want)
		}
	}
}

func TestClient_AuthHeader(t *testing.T) {
	h := &testHandler{responseBody: `{}`}
	c, srv := newTestClient(h, "sekrit")
	defer srv.Close()

	if _, err := c.Metrics(context.Background()); err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if h.auth != "Bearer sekrit" {
		t.Errorf("Authorization = %q, want Bearer sekrit", h.auth)
	}
}

func TestClient_APIError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNotFound, responseBody: `{"error":"unknown service: nope"}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	_, err := c.ServiceHealth(context.Background(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "unknown service: nope" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClient_StreamEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("topics"); got != "alerts.>" {
			t.Errorf("topics = %q, want alerts.>", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, ":keepalive\n\n")
		io.WriteString(w, "id:7\nevent:alerts.anomaly\ndata:{\"id\":\"ev-7\"}\n\n")
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	var got []StreamEvent
	err := c.StreamEvents(context.Background(), []string{"alerts.>"}, func(evt StreamEvent) error {
		got = append(got, evt)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if got[0].ID != 7 || got[0].Topic != "alerts.anomaly" {
		t.Errorf("event = %+v", got[0])
	}
	if string(got[0].Data) != `{"id":"ev-7"}` {
		t.Errorf("data = %s", got[0].Data)
	}
}
