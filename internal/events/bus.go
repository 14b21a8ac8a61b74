package events

// Package events provides the process-wide notification bus consumed by UI
// collaborators. Publishing never blocks; slow subscribers drop events.

import (
	"log/slog"
	"sync"
)

// Topic names the event streams the session layer emits.
type Topic string

const (
	// TopicSessionEnded fires when the request guard detects authoritative
	// session loss. Reason carries a human-readable explanation.
	TopicSessionEnded Topic = "session_ended"

	// TopicGoogleAuth fires when a Google handshake resolves, successfully
	// or not. Payload carries the handshake outcome.
	TopicGoogleAuth Topic = "google_auth"
)

// Event is one notification on the bus.
type Event struct {
	Topic   Topic
	Reason  string
	Payload any
}

// Bus is a minimal in-process pub/sub fan-out. Safe for concurrent use.
type Bus struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[Topic]map[chan Event]struct{}
}

// NewBus constructs a bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[Topic]map[chan Event]struct{}),
	}
}

// Subscribe registers interest in a topic. The returned cancel function
// removes the subscription and closes the channel; it is idempotent.
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Close under the same lock Publish fans out under, so a
			// concurrent publish can never send on a closed channel.
			b.mu.Lock()
			delete(b.subs[topic], ch)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to all current subscribers of its topic.
// Delivery is non-blocking: a full subscriber buffer drops the event.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event dropped, subscriber buffer full",
				slog.String("topic", string(ev.Topic)))
		}
	}
}
