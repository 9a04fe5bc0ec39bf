package forecast

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/events"
)

type fakeLedger struct {
	total int64
	drift int64
}

func (f *fakeLedger) TotalCents() int64              { return f.total }
func (f *fakeLedger) NetFlowCents(_ time.Time) int64 { return f.drift }

type capturingPublisher struct {
	mu   sync.Mutex
	seen []events.ForecastUpdate
}

func (c *capturingPublisher) Publish(_ context.Context, topic string, payload any, _ string, _ ...bus.PublishOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, payload.(events.ForecastUpdate))
	return nil
}

func (c *capturingPublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func newTestForecaster(view LedgerView, pub Publisher, opts Options) *Forecaster {
	opts.Rand = rand.New(rand.NewSource(11))
	return New(view, pub, opts)
}

func TestGenerate_PublishesAndRetains(t *testing.T) {
	pub := &capturingPublisher{}
	f := newTestForecaster(&fakeLedger{total: 1_000_000, drift: 10_000}, pub, Options{HorizonDays: 7})

	if _, ok := f.Latest(); ok {
		t.Fatal("Latest before first Generate should report ok=false")
	}

	if err := f.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if pub.count() != 1 {
		t.Fatalf("published %d forecasts, want 1", pub.count())
	}

	latest, ok := f.Latest()
	if !ok {
		t.Fatal("Latest after Generate should report ok=true")
	}
	if latest.HorizonDays != 7 || len(latest.Points) != 7 {
		t.Errorf("forecast shape = %d days / %d points, want 7/7", latest.HorizonDays, len(latest.Points))
	}
}

func TestProject_DriftAppliedPerDay(t *testing.T) {
	f := newTestForecaster(&fakeLedger{total: 1_000_000, drift: 10_000}, &capturingPublisher{}, Options{HorizonDays: 3})

	fc := f.project(time.Now().UTC())
	for i, p := range fc.Points {
		want := int64(1_000_000 + 10_000*(i+1))
		// Noise is at most 1% of the projection.
		tolerance := want / 50
		if p.ProjectedCents < want-tolerance || p.ProjectedCents > want+tolerance {
			t.Errorf("day %d projection = %d, want %d ±%d", i+1, p.ProjectedCents, want, tolerance)
		}
	}
}

func TestProject_ConfidenceDecays(t *testing.T) {
	f := newTestForecaster(&fakeLedger{total: 100}, &capturingPublisher{}, Options{HorizonDays: 12})

	fc := f.project(time.Now().UTC())
	for i := 1; i < len(fc.Points); i++ {
		if fc.Points[i].ConfidencePct > fc.Points[i-1].ConfidencePct {
			t.Fatalf("confidence rose from day %d to %d", i, i+1)
		}
	}
	last := fc.Points[len(fc.Points)-1].ConfidencePct
	if last < 50 {
		t.Errorf("confidence floor broken: %f", last)
	}
}

func TestStartStop_EmitsInitialForecast(t *testing.T) {
	pub := &capturingPublisher{}
	f := newTestForecaster(&fakeLedger{total: 100}, pub, Options{Interval: time.Hour})

	f.Start()
	deadline := time.Now().Add(time.Second)
	for pub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.Stop()
	f.Stop() // idempotent

	if pub.count() < 1 {
		t.Error("no initial forecast emitted by Start")
	}
}
