package events

import (
	"context"
	"log/slog"

	"github.com/pulseworks/cashbeat/internal/bus"
)

// AttachBridge mirrors every bus event onto the given Publisher. It subscribes
// to the full topic namespace and returns the subscription IDs so the caller
// can detach later. Mirror failures are logged, never propagated: the local
// dispatch already happened and the mirror is best-effort.
func AttachBridge(b *bus.Bus, pub Publisher, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	ids := make([]string, 0, len(Topics))
	for _, topic := range Topics {
		id, err := b.Subscribe(topic, func(ctx context.Context, evt bus.Event) error {
			if err := pub.Publish(ctx, evt.Topic, evt.Payload); err != nil {
				logger.Warn("mirror publish failed", "topic", evt.Topic, "event_id", evt.ID, "error", err)
			}
			return nil
		}, "nats-bridge")
		if err != nil {
			logger.Warn("mirror subscribe failed", "topic", topic, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// DetachBridge removes the subscriptions returned by AttachBridge.
func DetachBridge(b *bus.Bus, ids []string) {
	for _, id := range ids {
		b.Unsubscribe(id)
	}
}

// RunIngest feeds events arriving on the subscriber into the bus, decoded
// into their typed payloads. It blocks until ctx is cancelled or all topic
// channels close. This is the swap-in point for a real event source: traffic
// ingested here flows through the same dispatcher as synthetic load.
func RunIngest(ctx context.Context, sub *NATSSubscriber, b *bus.Bus, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	type tagged struct {
		topic string
		data  []byte
	}
	merged := make(chan tagged, 64)
	cancels := make([]func(), 0, len(Topics))
	defer func() {
		for _, c := range cancels {
			c()
		}
	}()

	ingestCtx, stop := context.WithCancel(ctx)
	defer stop()

	for _, topic := range Topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		cancels = append(cancels, cancel)
		go func(topic string, ch <-chan []byte) {
			for data := range ch {
				select {
				case merged <- tagged{topic, data}:
				case <-ingestCtx.Done():
					return
				}
			}
		}(topic, ch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-merged:
			payload, err := DecodePayload(msg.topic, msg.data)
			if err != nil {
				logger.Warn("dropping undecodable event", "topic", msg.topic, "error", err)
				continue
			}
			if err := b.Publish(ctx, msg.topic, payload, "nats-ingest"); err != nil {
				logger.Warn("ingest publish failed", "topic", msg.topic, "error", err)
			}
		}
	}
}
