package bus

import (
	"context"
	"sync"

	"github.com/pulseworks/cashbeat/internal/idgen"
)

// Handler consumes a delivered event. A returned error is logged by the bus
// and never propagated to the publisher.
type Handler func(ctx context.Context, evt Event) error

// Subscription ties a handler to a topic. Uniqueness is by ID, not by
// (topic, handler): the same handler may be registered many times.
type Subscription struct {
	ID       string
	Topic    string
	OwnerTag string
	handler  Handler
}

// registry maps topic names to their subscriptions in registration order.
type registry struct {
	mu     sync.RWMutex
	topics map[string][]*Subscription
	byID   map[string]*Subscription
}

func newRegistry() *registry {
	return &registry{
		topics: make(map[string][]*Subscription),
		byID:   make(map[string]*Subscription),
	}
}

// add registers a handler for a topic and returns the subscription ID.
func (r *registry) add(topic string, h Handler, ownerTag string) (string, error) {
	id, err := idgen.Subscription()
	if err != nil {
		return "", err
	}
	sub := &Subscription{ID: id, Topic: topic, OwnerTag: ownerTag, handler: h}

	r.mu.Lock()
	r.topics[topic] = append(r.topics[topic], sub)
	r.byID[id] = sub
	r.mu.Unlock()
	return id, nil
}

// remove deletes a subscription by ID. Unknown IDs are a silent no-op.
// Removing the last subscription for a topic drops the topic entry entirely.
func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)

	subs := r.topics[sub.Topic]
	for i, s := range subs {
		if s.ID == id {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.topics, sub.Topic)
	} else {
		r.topics[sub.Topic] = subs
	}
}

// lookup returns a snapshot of the topic's subscriptions in registration
// order. Later subscribe/unsubscribe calls do not affect the returned slice.
func (r *registry) lookup(topic string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*Subscription, len(subs))
	copy(out, subs)
	return out
}

// clear removes every subscription.
func (r *registry) clear() {
	r.mu.Lock()
	r.topics = make(map[string][]*Subscription)
	r.byID = make(map[string]*Subscription)
	r.mu.Unlock()
}

// topicCount reports how many topics currently have subscriptions.
func (r *registry) topicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
