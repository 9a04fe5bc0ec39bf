package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// streamRingSize is the number of recent events kept for Last-Event-ID
	// reconnection support.
	streamRingSize = 1000

	// streamKeepalive is how often keepalive comments are sent to prevent
	// connection timeouts.
	streamKeepalive = 15 * time.Second
)

// streamEvent is a single event stored in the ring buffer and sent to SSE clients.
type streamEvent struct {
	ID    uint64 // monotonically increasing sequence number
	Topic string
	Data  []byte // JSON-encoded payload
}

// streamHub fans out bus events to connected SSE clients. It keeps an
// in-memory ring buffer so a reconnecting client can replay what it missed.
type streamHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [streamRingSize]streamEvent
	ringPos int // next write position (wraps around)
	ringLen int // number of valid entries (up to streamRingSize)
}

// streamClient is a single connected SSE consumer.
type streamClient struct {
	topics []string          // topic glob patterns to match (empty = all)
	ch     chan *streamEvent // buffered channel for event delivery
}

func newStreamHub() *streamHub {
	return &streamHub{
		clients: make(map[*streamClient]struct{}),
	}
}

// broadcast sends an event to all connected clients whose topic filters match.
func (h *streamHub) broadcast(topic string, payload []byte) {
	id := h.nextID.Add(1)
	evt := &streamEvent{
		ID:    id,
		Topic: topic,
		Data:  payload,
	}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % streamRingSize
	if h.ringLen < streamRingSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.matchesTopic(topic) {
			select {
			case c.ch <- evt:
			default:
				// Drop if the client is slow so the dispatcher never blocks.
			}
		}
	}
}

// subscribe registers a new SSE client. Call unsubscribe when done.
func (h *streamHub) subscribe(topics []string) *streamClient {
	c := &streamClient{
		topics: topics,
		ch:     make(chan *streamEvent, 64),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// unsubscribe removes a client from the hub.
func (h *streamHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// eventsSince returns buffered events with ID > lastID, oldest first.
func (h *streamHub) eventsSince(lastID uint64) []*streamEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	if h.ringLen == 0 {
		return nil
	}

	var result []*streamEvent
	start := h.ringPos - h.ringLen
	if start < 0 {
		start += streamRingSize
	}
	for i := range h.ringLen {
		idx := (start + i) % streamRingSize
		evt := &h.ring[idx]
		if evt.ID > lastID {
			result = append(result, evt)
		}
	}
	return result
}

// matchesTopic checks whether the client's topic filters match the given topic.
// An empty filter list matches all topics.
func (c *streamClient) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern.
// "*" matches a single segment and ">" matches one or more trailing
// segments (NATS-style).
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}
	return len(patParts) == len(topParts)
}

// handleEventStream handles GET /v1/events/stream (SSE endpoint).
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	if q := r.URL.Query().Get("topics"); q != "" {
		for _, t := range strings.Split(q, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				topics = append(topics, t)
			}
		}
	}

	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Replay buffered events for reconnecting clients.
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if lastID, err := strconv.ParseUint(lastIDStr, 10, 64); err == nil {
			for _, evt := range s.hub.eventsSince(lastID) {
				if client.matchesTopic(evt.Topic) {
					writeStreamEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	ctx := r.Context()
	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeStreamEvent writes a single SSE event to the writer.
func writeStreamEvent(w http.ResponseWriter, evt *streamEvent) {
	fmt.Fprintf(w, "id:%d\n", evt.ID)
	fmt.Fprintf(w, "event:%s\n", evt.Topic)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}

// broadcastEvent marshals a payload and fans it out to SSE clients.
func (s *Server) broadcastEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.hub.broadcast(topic, payload)
}
