package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pulseworks/cashbeat/internal/bus"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func TestAttachBridge_MirrorsAllTopics(t *testing.T) {
	b := bus.New(bus.Options{Delay: bus.NoDelay})
	rec := &recordingPublisher{}

	ids := AttachBridge(b, rec, nil)
	if len(ids) != len(Topics) {
		t.Fatalf("AttachBridge returned %d subscriptions, want %d", len(ids), len(Topics))
	}

	ctx := context.Background()
	if err := b.Publish(ctx, TopicTransactionNew, Transaction{ID: "ev-1"}, "test"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Publish(ctx, TopicAnomalyDetected, Anomaly{ID: "ev-2"}, "test"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := rec.published()
	want := []string{TopicTransactionNew, TopicAnomalyDetected}
	if len(got) != len(want) {
		t.Fatalf("mirrored %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mirrored[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDetachBridge_StopsMirroring(t *testing.T) {
	b := bus.New(bus.Options{Delay: bus.NoDelay})
	rec := &recordingPublisher{}

	ids := AttachBridge(b, rec, nil)
	DetachBridge(b, ids)

	if err := b.Publish(context.Background(), TopicTransactionNew, Transaction{ID: "ev-1"}, "test"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := rec.published(); len(got) != 0 {
		t.Errorf("mirrored %v after detach, want none", got)
	}
}

func TestRunIngest_FeedsBus(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	b := bus.New(bus.Options{Delay: bus.NoDelay})
	received := make(chan bus.Event, 1)
	if _, err := b.Subscribe(TopicTransactionNew, func(ctx context.Context, evt bus.Event) error {
		received <- evt
		return nil
	}, "test"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = RunIngest(ctx, sub, b, nil)
	}()

	// Give RunIngest a moment to register its subscriptions.
	time.Sleep(100 * time.Millisecond)

	tx := Transaction{ID: "ev-ingest", AccountID: "acct-ops", AmountCents: 100}
	if err := pub.Publish(ctx, TopicTransactionNew, tx); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case evt := <-received:
		got, ok := evt.Payload.(*Transaction)
		if !ok {
			t.Fatalf("payload is %T, want *Transaction", evt.Payload)
		}
		if got.ID != "ev-ingest" {
			t.Errorf("ID = %q, want ev-ingest", got.ID)
		}
		if evt.SourceTag != "nats-ingest" {
			t.Errorf("SourceTag = %q, want nats-ingest", evt.SourceTag)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingested event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunIngest did not stop after cancel")
	}
}
