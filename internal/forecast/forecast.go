// Package forecast fakes the demo's "ML forecasting" panel: a periodic naive
// projection of total cash position from recent net flow plus noise. There is
// deliberately no model here; the output only needs to look plausible on a
// chart.
package forecast

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/events"
)

// SourceTag identifies forecaster-produced events on the bus.
const SourceTag = "forecaster"

// LedgerView is the slice of the ledger the forecaster reads.
type LedgerView interface {
	TotalCents() int64
	NetFlowCents(since time.Time) int64
}

// Publisher is the slice of the bus the forecaster needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, sourceTag string, opts ...bus.PublishOption) error
}

// Options configures the forecaster. Zero values take defaults: 60s interval,
// 7-day horizon, time-seeded RNG.
type Options struct {
	Interval    time.Duration
	HorizonDays int
	Rand        *rand.Rand
	Logger      *slog.Logger
}

// Forecaster periodically publishes forecast.updated and retains the latest
// forecast for the dashboard API.
type Forecaster struct {
	view    LedgerView
	pub     Publisher
	horizon int
	tick    time.Duration
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.RWMutex
	latest *events.ForecastUpdate

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(view LedgerView, pub Publisher, opts Options) *Forecaster {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Forecaster{
		view:    view,
		pub:     pub,
		horizon: opts.HorizonDays,
		tick:    opts.Interval,
		logger:  opts.Logger,
		rng:     opts.Rand,
	}
}

// Start launches the forecast loop. An initial forecast is produced
// immediately so the dashboard never polls an empty panel.
func (f *Forecaster) Start() {
	if f.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(ctx)
	}()
	f.logger.Info("forecaster started", "interval", f.tick, "horizon_days", f.horizon)
}

// Stop cancels the loop and waits for the in-flight forecast to finish.
func (f *Forecaster) Stop() {
	if f.cancel != nil {
		f.cancel()
		f.wg.Wait()
		f.cancel = nil
	}
}

func (f *Forecaster) run(ctx context.Context) {
	if err := f.Generate(ctx); err != nil && ctx.Err() == nil {
		f.logger.Warn("initial forecast failed", "error", err)
	}

	ticker := time.NewTicker(f.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Generate(ctx); err != nil && ctx.Err() == nil {
				f.logger.Warn("forecast failed", "error", err)
			}
		}
	}
}

// Generate produces one forecast, publishes it, and retains it as latest.
func (f *Forecaster) Generate(ctx context.Context) error {
	now := time.Now().UTC()
	update := f.project(now)

	f.mu.Lock()
	f.latest = &update
	f.mu.Unlock()

	return f.pub.Publish(ctx, events.TopicForecastUpdated, update, SourceTag)
}

// project extrapolates the last 24h of net flow across the horizon, with a
// little noise and decaying confidence per day out.
func (f *Forecaster) project(now time.Time) events.ForecastUpdate {
	total := f.view.TotalCents()
	drift := f.view.NetFlowCents(now.Add(-24 * time.Hour))

	points := make([]events.ForecastPoint, 0, f.horizon)
	projected := total
	for day := 1; day <= f.horizon; day++ {
		projected += drift
		noise := int64(float64(projected) * 0.01 * (f.randFloat()*2 - 1))
		confidence := 95.0 - 5.0*float64(day)
		if confidence < 50 {
			confidence = 50
		}
		points = append(points, events.ForecastPoint{
			Date:           now.AddDate(0, 0, day).Truncate(24 * time.Hour),
			ProjectedCents: projected + noise,
			ConfidencePct:  confidence,
		})
	}
	return events.ForecastUpdate{
		GeneratedAt: now,
		HorizonDays: f.horizon,
		Points:      points,
	}
}

func (f *Forecaster) randFloat() float64 {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return f.rng.Float64()
}

// Latest returns the most recent forecast; ok is false before the first run.
func (f *Forecaster) Latest() (events.ForecastUpdate, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return events.ForecastUpdate{}, false
	}
	return *f.latest, true
}
