// ABOUTME: In-memory fan-out of accepted attendance events to connected sockets.
// ABOUTME: One shared topic: every subscriber sees every event, unfiltered.

package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shiftline/presence/internal/records"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Hub broadcasts accepted attendance events to every subscribed
// connection. Per-user filtering is deliberately a client concern; the
// hub does not partition by employee.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan records.AttendanceEvent
	logger      *slog.Logger
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]chan records.AttendanceEvent),
		logger:      logger.With("component", "hub"),
	}
}

// Subscribe registers a subscriber and returns its event channel and
// subscription id. The subscription is cleaned up when ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context) (<-chan records.AttendanceEvent, string) {
	subID := uuid.New().String()
	ch := make(chan records.AttendanceEvent, subscriberBufferSize)

	h.mu.Lock()
	h.subscribers[subID] = ch
	h.mu.Unlock()

	h.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		h.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish delivers an event to every subscriber. Non-blocking: the event
// is dropped for subscribers whose channels are full.
func (h *Hub) Publish(event records.AttendanceEvent) {
	// Sends stay under the read lock. Unsubscribe closes channels under
	// the write lock, so a send can never race a close.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Debug("dropped event for slow subscriber", "event_id", event.ID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subscribers[subID]
	if !ok {
		return
	}
	delete(h.subscribers, subID)
	close(ch)

	h.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the hub and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for subID, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, subID)
	}
}
