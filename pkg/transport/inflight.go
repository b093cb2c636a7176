package transport

import (
	"context"
	"sync"
)

// InFlightRegistry tracks active streaming requests so the server can
// cancel them during shutdown. Streams have no fixed write timeout, so
// without explicit cancellation a draining server could hang on a
// long-lived conversation indefinitely.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[uint64]context.CancelFunc),
	}
}

// Register adds a streaming request and returns its handle. The cancel
// function is called if the server shuts down while the stream is open.
func (r *InFlightRegistry) Register(cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.entries[id] = cancel
	return id
}

// Remove removes a stream from the registry without cancelling it.
// Called when a stream completes normally.
func (r *InFlightRegistry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// CancelAll cancels every registered stream. Used during shutdown.
func (r *InFlightRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.entries {
		cancel()
		delete(r.entries, id)
	}
}

// Len reports the number of active streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
