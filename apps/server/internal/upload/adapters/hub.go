package adapters

import (
	"log/slog"
	"sync"

	"github.com/kessler/gitstow/apps/server/internal/upload"
	"github.com/kessler/gitstow/pkg/api"
)

// subscriberBuffer bounds how far a slow observer may lag before it starts
// missing events. Observers recover the full picture from the session
// snapshot, so dropped events are cosmetic.
const subscriberBuffer = 16

// Compile-time check: *Hub implements upload.ProgressPublisher.
var _ upload.ProgressPublisher = (*Hub)(nil)

// Hub fans progress events out to zero or more subscribers. Publishing is
// best-effort and never blocks: a subscriber with a full buffer misses the
// event, and publishing with no subscribers at all is a no-op. The batch
// proceeds regardless of whether anything is observing it.
type Hub struct {
	mu   sync.Mutex
	subs map[chan api.ProgressEvent]struct{}
	log  *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[chan api.ProgressEvent]struct{}),
		log:  log,
	}
}

// Subscribe registers an observer and returns its event channel plus a
// cancel function that unregisters and closes it.
func (h *Hub) Subscribe() (<-chan api.ProgressEvent, func()) {
	ch := make(chan api.ProgressEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of attached observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber that has buffer room.
func (h *Hub) Publish(ev api.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debug("subscriber buffer full, dropping progress event",
				"batchId", ev.BatchID, "file", ev.File)
		}
	}
}
