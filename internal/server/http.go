package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseworks/cashbeat/internal/events"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, /v1 requests (except GET /v1/health) must
// include a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(authToken))
		r.Get("/metrics", s.handleBusMetrics)
		r.Get("/health", s.handleHealth)
		r.Get("/health/{service}", s.handleServiceHealth)
		r.Get("/accounts", s.handleAccounts)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/anomalies", s.handleAnomalies)
		r.Get("/forecast", s.handleForecast)
		r.Get("/events/stream", s.handleEventStream)
		r.Post("/events", s.handlePublishEvent)
	})

	return r
}

// requestLogger logs method, path, status, and duration for every request.
// The SSE stream is exempt: it holds the connection open for its lifetime.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/events/stream" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// AuthMiddleware checks the Authorization header for a valid Bearer token.
// When token is empty, auth is disabled and all requests pass through.
// GET /v1/health is always exempt.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt health check.
			if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
				return
			}
			provided := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleBusMetrics handles GET /v1/metrics.
func (s *Server) handleBusMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bus.Metrics())
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"services": s.health.Snapshot(),
	})
}

// handleServiceHealth handles GET /v1/health/{service}.
func (s *Server) handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service")
	rec, ok := s.health.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service: "+name)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleAccounts handles GET /v1/accounts.
func (s *Server) handleAccounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":    s.ledger.Balances(),
		"total_cents": s.ledger.TotalCents(),
	})
}

// handleTransactions handles GET /v1/transactions. Supports ?limit=N.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs := s.ledger.Recent(limit)
	if txs == nil {
		txs = []events.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// handleAnomalies handles GET /v1/anomalies. Supports ?limit=N.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"anomalies": s.recentAnomalies(limit)})
}

// handleForecast handles GET /v1/forecast.
func (s *Server) handleForecast(w http.ResponseWriter, _ *http.Request) {
	update, ok := s.fc.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no forecast generated yet")
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// publishRequest is the body for POST /v1/events.
type publishRequest struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	Source  string          `json:"source,omitempty"`
}

// handlePublishEvent handles POST /v1/events: inject an event into the bus.
func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	payload, err := events.DecodePayload(req.Topic, req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	if err := s.bus.Publish(r.Context(), req.Topic, payload, source); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "published",
		"topic":  req.Topic,
	})
}

// parseLimit reads an optional positive ?limit query parameter.
func parseLimit(r *http.Request, fallback int) (int, error) {
	q := r.URL.Query().Get("limit")
	if q == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return 0, &limitError{q}
	}
	return n, nil
}

type limitError struct{ raw string }

func (e *limitError) Error() string { return "invalid limit: " + e.raw }

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
