// Package realtime provides the worker-to-observer event channel.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

// subscriberBuffer bounds each subscription channel. Pushes never block the
// worker: a full buffer drops the event for that subscriber and counts it.
const subscriberBuffer = 256

// EventHub implements out.EventSink. The worker is the only producer;
// dashboard/console observers subscribe independently and each sees the
// push order (FIFO per subscription).
type EventHub struct {
	subscribers map[chan *domain.LogEvent]struct{}
	mu          sync.RWMutex
	log         zerolog.Logger

	// Metrics
	eventsSent    int64
	eventsDropped int64
	seqCounter    int64
}

func NewEventHub(log zerolog.Logger) *EventHub {
	return &EventHub{
		subscribers: make(map[chan *domain.LogEvent]struct{}),
		log:         log.With().Str("component", "event_hub").Logger(),
	}
}

// Push queues an event for every subscriber. The event is completed in
// place (id, seq, timestamp) and never mutated afterwards.
func (h *EventHub) Push(event *domain.LogEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Seq = atomic.AddInt64(&h.seqCounter, 1)

	h.mu.RLock()
	chList := make([]chan *domain.LogEvent, 0, len(h.subscribers))
	for ch := range h.subscribers {
		chList = append(chList, ch)
	}
	h.mu.RUnlock()

	for _, ch := range chList {
		select {
		case ch <- event:
			atomic.AddInt64(&h.eventsSent, 1)
		default:
			atomic.AddInt64(&h.eventsDropped, 1)
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Int64("seq", event.Seq).
				Msg("dropped event due to full buffer")
		}
	}
}

// Subscribe creates a new subscription channel.
func (h *EventHub) Subscribe() <-chan *domain.LogEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *domain.LogEvent, subscriberBuffer)
	h.subscribers[ch] = struct{}{}

	h.log.Debug().Int("total_subscribers", len(h.subscribers)).Msg("observer subscribed")
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (h *EventHub) Unsubscribe(ch <-chan *domain.LogEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.subscribers {
		if c == ch {
			delete(h.subscribers, c)
			close(c)
			break
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Metrics returns hub counters.
func (h *EventHub) Metrics() HubMetrics {
	return HubMetrics{
		Subscribers:   h.SubscriberCount(),
		EventsSent:    atomic.LoadInt64(&h.eventsSent),
		EventsDropped: atomic.LoadInt64(&h.eventsDropped),
	}
}

// HubMetrics holds event hub counters.
type HubMetrics struct {
	Subscribers   int   `json:"subscribers"`
	EventsSent    int64 `json:"events_sent"`
	EventsDropped int64 `json:"events_dropped"`
}

// SerializeEvent converts a LogEvent to its SSE data payload.
func SerializeEvent(event *domain.LogEvent) ([]byte, error) {
	return json.Marshal(event)
}

var _ out.EventSink = (*EventHub)(nil)
