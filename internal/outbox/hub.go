// Package outbox fans events emitted by the extension out to subscribers such as
// SSE streams.
package outbox

import (
	"sync"

	"github.com/TimurManjosov/goptimize/internal/logging"
	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 64

var log = logging.Component("outbox")

// Hub is an optimize.Dispatcher that copies each event to every subscriber.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan optimize.Event]struct{}
	buffer int
}

var _ optimize.Dispatcher = (*Hub)(nil)

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[chan optimize.Event]struct{}), buffer: buffer}
}

// Subscribe registers a listener and returns its channel and an unsubscribe func.
func (h *Hub) Subscribe() (<-chan optimize.Event, func()) {
	ch := make(chan optimize.Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, unsub
}

// Dispatch delivers ev to all subscribers without blocking. A subscriber whose
// buffer is full misses the event.
func (h *Hub) Dispatch(ev optimize.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			telemetry.OutboxDropped.Inc()
			log.WithField("event", ev.Name).Warn("subscriber is slow, dropping event")
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
