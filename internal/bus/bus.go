// Package bus implements the in-process event dispatcher at the heart of the
// cashbeat demo: topic-keyed fan-out with per-subscriber fault isolation,
// simulated delivery latency, and a bounded rolling latency window.
//
// Everything is explicitly constructed, and the artificial delay is
// injectable so tests run with zero latency.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulseworks/cashbeat/internal/idgen"
	"github.com/pulseworks/cashbeat/internal/metrics"
)

// DefaultWindowSize is the number of latency samples retained for the
// rolling average.
const DefaultWindowSize = 100

// Event is the record created at publish time. It is owned by the bus until
// delivery completes and is not retained afterwards.
type Event struct {
	ID        string
	Topic     string
	Payload   any
	Timestamp time.Time
	SourceTag string
	TargetTag string
	Delivered bool
}

// Metrics is a point-in-time copy of the bus counters. CurrentDepth counts
// events published but not yet delivered; with near-synchronous delivery it
// is nonzero only transiently.
type Metrics struct {
	TotalPublished   uint64  `json:"total_published"`
	TotalConsumed    uint64  `json:"total_consumed"`
	CurrentDepth     int     `json:"current_depth"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	ThroughputPerSec uint64  `json:"throughput_per_sec"`
}

// Options configures a Bus. The zero value is usable: uniform 1-15ms delay,
// 100-sample window, default logger.
type Options struct {
	Delay      Delay
	WindowSize int
	Logger     *slog.Logger
}

// Bus routes published events to the subscribers registered on their topic.
type Bus struct {
	reg    *registry
	delay  Delay
	logger *slog.Logger

	mu             sync.Mutex
	totalPublished uint64
	totalConsumed  uint64
	pending        map[string]struct{}
	window         *window
	tickPublished  uint64 // publishes since the last throughput tick
	throughput     uint64 // publishes during the previous full second

	tickerCancel context.CancelFunc
	tickerWG     sync.WaitGroup
}

// New returns a Bus ready for Subscribe/Publish. Call Start to enable the
// per-second throughput counter and Stop to tear it down.
func New(opts Options) *Bus {
	if opts.Delay == nil {
		opts.Delay = UniformDelay(time.Millisecond, 15*time.Millisecond, nil)
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bus{
		reg:     newRegistry(),
		delay:   opts.Delay,
		logger:  opts.Logger,
		pending: make(map[string]struct{}),
		window:  newWindow(opts.WindowSize),
	}
}

// Subscribe registers a handler for a topic and returns its subscription ID.
func (b *Bus) Subscribe(topic string, h Handler, ownerTag string) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("subscribe: topic is required")
	}
	if h == nil {
		return "", fmt.Errorf("subscribe: handler is required")
	}
	return b.reg.add(topic, h, ownerTag)
}

// Unsubscribe removes a subscription. Unknown IDs are a silent no-op.
// Deliveries already in flight still reach the handler.
func (b *Bus) Unsubscribe(id string) {
	b.reg.remove(id)
}

// PublishOption customizes a single publish call.
type PublishOption func(*Event)

// WithTarget tags the event with an intended consumer, for display only.
func WithTarget(tag string) PublishOption {
	return func(e *Event) { e.TargetTag = tag }
}

// Publish routes payload to every subscriber registered on topic at the
// moment delivery begins, in registration order. It blocks through the
// artificial delay and all deliveries; a handler error or panic is logged
// and never fails the publish. Zero subscribers is a valid outcome: the
// event is counted as published and silently dropped.
//
// The only error cases are a cancelled context (the event is withdrawn from
// the pending set and never delivered) and an empty topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload any, sourceTag string, opts ...PublishOption) error {
	if topic == "" {
		return fmt.Errorf("publish: topic is required")
	}
	id, err := idgen.Event()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	evt := Event{
		ID:        id,
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		SourceTag: sourceTag,
	}
	for _, opt := range opts {
		opt(&evt)
	}

	b.mu.Lock()
	b.totalPublished++
	b.tickPublished++
	b.pending[id] = struct{}{}
	b.mu.Unlock()
	metrics.IncPublished(topic)

	start := time.Now()

	if d := b.delay(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.mu.Lock()
			delete(b.pending, id)
			b.mu.Unlock()
			metrics.DecWithdrawn()
			return ctx.Err()
		case <-timer.C:
		}
	}

	delivered := uint64(0)
	for _, sub := range b.reg.lookup(topic) {
		if b.deliver(ctx, sub, evt) {
			delivered++
			metrics.IncConsumed(topic)
		} else {
			metrics.IncDeliveryError(topic)
		}
	}
	evt.Delivered = true

	elapsed := time.Since(start)
	b.mu.Lock()
	b.totalConsumed += delivered
	delete(b.pending, id)
	b.window.add(float64(elapsed.Microseconds()) / 1000.0)
	b.mu.Unlock()
	metrics.ObserveDelivered(elapsed.Seconds())

	return nil
}

// deliver invokes one handler, isolating errors and panics so the remaining
// subscribers still receive the event.
func (b *Bus) deliver(ctx context.Context, sub *Subscription, evt Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.logger.Error("subscriber panicked",
				"topic", evt.Topic,
				"subscription_id", sub.ID,
				"owner", sub.OwnerTag,
				"panic", r)
		}
	}()
	if err := sub.handler(ctx, evt); err != nil {
		b.logger.Warn("subscriber delivery failed",
			"topic", evt.Topic,
			"subscription_id", sub.ID,
			"owner", sub.OwnerTag,
			"error", err)
		return false
	}
	return true
}

// Metrics returns a copy of the current counters, never a live reference.
func (b *Bus) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Metrics{
		TotalPublished:   b.totalPublished,
		TotalConsumed:    b.totalConsumed,
		CurrentDepth:     len(b.pending),
		AvgLatencyMs:     b.window.avg(),
		ThroughputPerSec: b.throughput,
	}
}

// Start launches the background throughput tick: once per second the
// per-second publish counter is snapshotted into ThroughputPerSec and reset.
// Call Stop to cancel and join the ticker goroutine.
func (b *Bus) Start() {
	if b.tickerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.tickerCancel = cancel

	b.tickerWG.Add(1)
	go func() {
		defer b.tickerWG.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.mu.Lock()
				b.throughput = b.tickPublished
				b.tickPublished = 0
				b.mu.Unlock()
			}
		}
	}()
}

// Stop cancels the throughput ticker and waits for it to exit.
func (b *Bus) Stop() {
	if b.tickerCancel != nil {
		b.tickerCancel()
		b.tickerWG.Wait()
		b.tickerCancel = nil
	}
}

// Reset removes every subscription and zeroes all counters and the latency
// window. Used for a full reset between demo sessions.
func (b *Bus) Reset() {
	b.reg.clear()
	b.mu.Lock()
	b.totalPublished = 0
	b.totalConsumed = 0
	b.tickPublished = 0
	b.throughput = 0
	b.pending = make(map[string]struct{})
	b.window.reset()
	b.mu.Unlock()
}
