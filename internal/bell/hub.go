// Package bell delivers "ring" requests to the devices listening on a
// location and waits for one of them to acknowledge.
package bell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrNoListeners is returned when no device listens on the location.
var ErrNoListeners = errors.New("no bell listeners")

const (
	// TypeRing is sent to listeners.
	TypeRing = "ring"
	// TypeAck is sent back by listeners.
	TypeAck = "ack"
)

// Message is the JSON frame exchanged with listeners.
type Message struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

// Hub tracks listeners per location and pending rings.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[string]*Listener
	pending   map[uint64]chan struct{}
	nextID    atomic.Uint64
	logger    *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		listeners: map[string]map[string]*Listener{},
		pending:   map[uint64]chan struct{}{},
		logger:    logger.With("component", "bell.Hub"),
	}
}

// Listener is one registered device.
type Listener struct {
	ID       string
	Location string
	hub      *Hub
	outbox   chan Message
	once     sync.Once
}

// Messages returns the frames to deliver to the device. It is closed on Close.
func (l *Listener) Messages() <-chan Message {
	return l.outbox
}

// Ack acknowledges the ring with the given id.
func (l *Listener) Ack(id uint64) {
	l.hub.ack(id)
}

// Close unregisters the listener.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.hub.remove(l)
		close(l.outbox)
	})
}

// Listen registers a new listener for locationID.
func (h *Hub) Listen(locationID string) *Listener {
	listener := &Listener{
		ID:       uuid.NewString(),
		Location: locationID,
		hub:      h,
		outbox:   make(chan Message, 8),
	}
	h.mu.Lock()
	if h.listeners[locationID] == nil {
		h.listeners[locationID] = map[string]*Listener{}
	}
	h.listeners[locationID][listener.ID] = listener
	count := len(h.listeners[locationID])
	h.mu.Unlock()

	h.logger.Info("bell listener registered", "location_id", locationID, "listener_id", listener.ID, "listeners", count)
	return listener
}

// Listeners reports how many devices listen on locationID.
func (h *Hub) Listeners(locationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[locationID])
}

func (h *Hub) remove(listener *Listener) {
	h.mu.Lock()
	delete(h.listeners[listener.Location], listener.ID)
	if len(h.listeners[listener.Location]) == 0 {
		delete(h.listeners, listener.Location)
	}
	h.mu.Unlock()
	h.logger.Info("bell listener removed", "location_id", listener.Location, "listener_id", listener.ID)
}

func (h *Hub) ack(id uint64) {
	h.mu.Lock()
	done, ok := h.pending[id]
	if ok {
		delete(h.pending, id)
	}
	h.mu.Unlock()
	if ok {
		close(done)
	}
}

// Ring sends a ring to every listener of locationID and blocks until one
// acknowledges or ctx ends.
func (h *Hub) Ring(ctx context.Context, locationID string) error {
	id := h.nextID.Add(1)
	done := make(chan struct{})

	h.mu.Lock()
	targets := make([]*Listener, 0, len(h.listeners[locationID]))
	for _, listener := range h.listeners[locationID] {
		targets = append(targets, listener)
	}
	if len(targets) == 0 {
		h.mu.Unlock()
		return ErrNoListeners
	}
	h.pending[id] = done
	delivered := 0
	for _, listener := range targets {
		select {
		case listener.outbox <- Message{Type: TypeRing, ID: id}:
			delivered++
		default:
			h.logger.Warn("bell listener backlogged, ring dropped", "location_id", locationID, "listener_id", listener.ID)
		}
	}
	h.mu.Unlock()

	h.logger.Debug("bell ring sent", "location_id", locationID, "ring_id", id, "delivered", delivered)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
		return fmt.Errorf("ring %d at %s: %w", id, locationID, ctx.Err())
	}
}
