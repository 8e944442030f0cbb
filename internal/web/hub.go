package web

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"foryou/internal/logger"
)

const subscriberBuffer = 64

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// Hub fans session events out to connected SSE clients. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan Event
	closed  bool
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]chan Event),
		log:     log.WithComponent("sse_hub"),
	}
}

// Subscribe registers a client. The returned channel is closed by the cancel
// func or by Close.
func (h *Hub) Subscribe() (string, <-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	h.clients[id] = ch
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client subscribed", map[string]interface{}{"client_id": id, "total_clients": total})

	var once sync.Once
	return id, ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

// Publish marshals payload and sends it to every subscriber.
func (h *Hub) Publish(name string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Error("failed to encode event", map[string]interface{}{"event": name})
		return
	}
	event := Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- event:
		default:
			h.log.Warn("client channel full, dropping event", map[string]interface{}{"client_id": id, "event": name})
		}
	}
}

// ClientCount returns the number of subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
}
