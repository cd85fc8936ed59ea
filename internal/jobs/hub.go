package jobs

import (
	"sync"
	"time"

	"viralforge/internal/models"
)

// Event is one job progress update fanned out to observers.
type Event struct {
	Seq        int64            `json:"seq"`
	Timestamp  time.Time        `json:"timestamp"`
	JobID      string           `json:"job_id"`
	Status     models.JobStatus `json:"status"`
	Progress   int              `json:"progress"`
	OutputPath string           `json:"output_path,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Hub is the publish/subscribe bridge between the orchestrator and live
// observers. Publishing is fire-and-forget: a slow or absent observer never
// blocks the pipeline, and delivery is at-least-once — subscribers catching
// up via Since may see events they already received on their channel.
type Hub struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	subs      map[int]chan Event
	nextSub   int
}

// NewHub creates a Hub retaining up to maxEvents for incremental reads.
func NewHub(maxEvents int) *Hub {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Hub{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		subs:      make(map[int]chan Event),
	}
}

// Publish assigns a sequence and timestamp, appends to history, and fans
// out to live subscribers without blocking.
func (h *Hub) Publish(event Event) Event {
	h.mu.Lock()

	h.nextSeq++
	event.Seq = h.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.events = append(h.events, event)
	if len(h.events) > h.maxEvents {
		trim := len(h.events) - h.maxEvents
		h.events = append([]Event(nil), h.events[trim:]...)
	}

	subs := make([]chan Event, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Observer buffer full; it recovers via Since.
		}
	}
	return event
}

// Subscribe registers a live observer. The returned cancel func must be
// called to release the channel. The channel is never closed: Publish may
// still be sending on it from outside the lock, so cancel only removes it
// from the fan-out set and the receiver stops on its own context.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan Event, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
	return ch, cancel
}

// Since returns retained events with sequence strictly greater than seq.
func (h *Hub) Since(seq int64) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(h.events))
	for _, event := range h.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
