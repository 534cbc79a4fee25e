// Package logstream fans structured log lines out to live subscribers such as WebSocket clients.
package logstream

import (
	"sync"
)

// DefaultBufferSize is the number of lines a slow subscriber may lag behind before lines are dropped
const DefaultBufferSize = 256

// Hub is an io.Writer that broadcasts every written line to all current subscribers.
// Writes never block on subscribers: a subscriber whose buffer is full misses the line.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uint64]chan []byte
	nextID     uint64
	bufferSize int
}

// NewHub creates a hub whose subscribers buffer up to bufferSize lines
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:       make(map[uint64]chan []byte),
		bufferSize: bufferSize,
	}
}

// Write implements io.Writer so the hub can back a zap core
func (h *Hub) Write(p []byte) (int, error) {
	// zap reuses its buffer after Write returns
	line := make([]byte, len(p))
	copy(line, p)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer
func (h *Hub) Sync() error {
	return nil
}

// Subscribe registers a new subscriber. The returned cancel func unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.bufferSize)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
