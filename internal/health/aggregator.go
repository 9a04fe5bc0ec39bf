// Package health maintains the fake per-service health view shown on the
// dashboard. Latency and error rate drift on a periodic random walk to
// simulate monitoring noise; nothing here measures a real system.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pulseworks/cashbeat/internal/catalog"
)

// Status of a simulated service.
type Status string

const (
	StatusStarting Status = "starting"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Walk parameters: each tick every service has an independent chance of a
// small perturbation to its latency and error rate.
const (
	walkChance      = 0.10
	latencyJitterMs = 5.0
	errorJitterPct  = 0.05
	startingGrace   = 5 * time.Second
)

// Status thresholds. Unlike the walk itself these are real derivations:
// status always reflects the current latency/error-rate values.
const (
	degradedLatencyFactor = 2.0
	degradedErrorPct      = 1.0
	downErrorPct          = 5.0
)

// Record is a point-in-time copy of one service's health.
type Record struct {
	Name         string    `json:"name"`
	Status       Status    `json:"status"`
	LatencyMs    float64   `json:"latency_ms"`
	ErrorRatePct float64   `json:"error_rate_pct"`
	Uptime       string    `json:"uptime"`
	CheckedAt    time.Time `json:"checked_at"`
}

type serviceState struct {
	baselineLatencyMs float64
	latencyMs         float64
	errorRatePct      float64
}

// Aggregator holds the static service roster and walks its values on a
// fixed tick. Construct with New, then Start/Stop.
type Aggregator struct {
	mu       sync.RWMutex
	services map[string]*serviceState
	order    []string
	started  time.Time

	tick   time.Duration
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures the aggregator. Zero values take defaults: 1s tick,
// time-seeded RNG, default logger.
type Options struct {
	Tick   time.Duration
	Rand   *rand.Rand
	Logger *slog.Logger
}

// New builds an aggregator from the catalog's service roster.
func New(services []catalog.Service, opts Options) *Aggregator {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &Aggregator{
		services: make(map[string]*serviceState, len(services)),
		started:  time.Now(),
		tick:     opts.Tick,
		logger:   opts.Logger,
		rng:      opts.Rand,
	}
	for _, s := range services {
		a.services[s.Name] = &serviceState{
			baselineLatencyMs: s.BaselineLatencyMs,
			latencyMs:         s.BaselineLatencyMs,
			errorRatePct:      s.BaselineErrorPct,
		}
		a.order = append(a.order, s.Name)
	}
	return a
}

// Start launches the random-walk tick. Stop cancels and joins it.
func (a *Aggregator) Start() {
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.walk()
			}
		}
	}()
	a.logger.Info("health aggregator started", "services", len(a.order), "tick", a.tick)
}

// Stop shuts down the walk goroutine.
func (a *Aggregator) Stop() {
	if a.cancel != nil {
		a.cancel()
		a.wg.Wait()
		a.cancel = nil
	}
}

// walk perturbs each service with independent probability walkChance.
func (a *Aggregator) walk() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, state := range a.services {
		if a.randFloat() >= walkChance {
			continue
		}
		state.latencyMs += (a.randFloat()*2 - 1) * latencyJitterMs
		if state.latencyMs < 1 {
			state.latencyMs = 1
		}
		state.errorRatePct += (a.randFloat()*2 - 1) * errorJitterPct
		if state.errorRatePct < 0 {
			state.errorRatePct = 0
		}
		if state.errorRatePct > 100 {
			state.errorRatePct = 100
		}
	}
}

func (a *Aggregator) randFloat() float64 {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return a.rng.Float64()
}

// Get returns one service's record; ok is false for unknown names.
func (a *Aggregator) Get(name string) (Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	state, ok := a.services[name]
	if !ok {
		return Record{}, false
	}
	return a.record(name, state), true
}

// Snapshot returns all services in roster order. The slice and records are
// copies; mutating them does not affect the aggregator.
func (a *Aggregator) Snapshot() []Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Record, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.record(name, a.services[name]))
	}
	return out
}

// record derives the status from the current walked values.
func (a *Aggregator) record(name string, s *serviceState) Record {
	now := time.Now()
	return Record{
		Name:         name,
		Status:       a.status(s, now),
		LatencyMs:    s.latencyMs,
		ErrorRatePct: s.errorRatePct,
		Uptime:       uptimeLabel(now.Sub(a.started)),
		CheckedAt:    now,
	}
}

func (a *Aggregator) status(s *serviceState, now time.Time) Status {
	if now.Sub(a.started) < startingGrace {
		return StatusStarting
	}
	switch {
	case s.errorRatePct >= downErrorPct:
		return StatusDown
	case s.errorRatePct >= degradedErrorPct,
		s.latencyMs >= s.baselineLatencyMs*degradedLatencyFactor:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// uptimeLabel renders a coarse human-readable uptime ("2d 3h", "14m").
func uptimeLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
