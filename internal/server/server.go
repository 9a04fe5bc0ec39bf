package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/events"
	"github.com/pulseworks/cashbeat/internal/forecast"
	"github.com/pulseworks/cashbeat/internal/health"
	"github.com/pulseworks/cashbeat/internal/ledger"
)

// defaultAnomalyCap is how many recent anomalies the server retains for
// GET /v1/anomalies.
const defaultAnomalyCap = 100

// Server exposes the dashboard's read surface over HTTP: bus metrics, service
// health, balances, recent traffic, and a live SSE feed of every bus event.
type Server struct {
	bus    *bus.Bus
	ledger *ledger.Ledger
	fc     *forecast.Forecaster
	health *health.Aggregator
	hub    *streamHub
	logger *slog.Logger

	anomMu    sync.Mutex
	anomalies []events.Anomaly

	subIDs []string
}

// New returns a Server over the given components. Call Attach to start
// observing bus traffic and Detach on shutdown.
func New(b *bus.Bus, l *ledger.Ledger, f *forecast.Forecaster, h *health.Aggregator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		bus:    b,
		ledger: l,
		fc:     f,
		health: h,
		hub:    newStreamHub(),
		logger: logger,
	}
}

// Attach subscribes the server to every topic so it can feed the SSE hub and
// the recent-anomaly cache. Returns an error if any subscription fails.
func (s *Server) Attach() error {
	for _, topic := range events.Topics {
		id, err := s.bus.Subscribe(topic, s.observe, "dashboard")
		if err != nil {
			s.Detach()
			return err
		}
		s.subIDs = append(s.subIDs, id)
	}
	return nil
}

// Detach removes the server's bus subscriptions.
func (s *Server) Detach() {
	for _, id := range s.subIDs {
		s.bus.Unsubscribe(id)
	}
	s.subIDs = nil
}

// observe handles every delivered bus event: broadcast to SSE clients and,
// for anomalies, record in the bounded cache.
func (s *Server) observe(ctx context.Context, evt bus.Event) error {
	s.broadcastEvent(evt.Topic, evt.Payload)

	if evt.Topic == events.TopicAnomalyDetected {
		if a, ok := anomalyPayload(evt.Payload); ok {
			s.recordAnomaly(a)
		}
	}
	return nil
}

func anomalyPayload(p any) (events.Anomaly, bool) {
	switch v := p.(type) {
	case events.Anomaly:
		return v, true
	case *events.Anomaly:
		return *v, true
	}
	return events.Anomaly{}, false
}

func (s *Server) recordAnomaly(a events.Anomaly) {
	s.anomMu.Lock()
	defer s.anomMu.Unlock()
	s.anomalies = append([]events.Anomaly{a}, s.anomalies...)
	if len(s.anomalies) > defaultAnomalyCap {
		s.anomalies = s.anomalies[:defaultAnomalyCap]
	}
}

// recentAnomalies returns up to limit cached anomalies, newest first.
func (s *Server) recentAnomalies(limit int) []events.Anomaly {
	s.anomMu.Lock()
	defer s.anomMu.Unlock()
	if limit <= 0 || limit > len(s.anomalies) {
		limit = len(s.anomalies)
	}
	out := make([]events.Anomaly, limit)
	copy(out, s.anomalies[:limit])
	return out
}
