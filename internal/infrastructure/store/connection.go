// Package store owns the lifecycle of the single document-store handle.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/metrics"
)

// State is the lifecycle state of a ConnectionManager
type State int

const (
	Disconnected State = iota
	Connected
	Degraded
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handle is a live connection to the backing store
type Handle interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer establishes a new handle
type Dialer[H Handle] func(ctx context.Context) (H, error)

// ConnectionManager hands out the one live store handle, reconnecting when a liveness ping fails.
// Acquisition is serialized so concurrent callers never dial two handles.
type ConnectionManager[H Handle] struct {
	mu     sync.Mutex
	dial   Dialer[H]
	handle H
	state  State

	logger  domain.Logger
	metrics domain.Metrics
}

// NewConnectionManager creates a manager in the Disconnected state. Nothing is dialed until Get.
func NewConnectionManager[H Handle](dial Dialer[H], logger domain.Logger, m domain.Metrics) *ConnectionManager[H] {
	if m == nil {
		m = metrics.Noop{}
	}
	return &ConnectionManager[H]{
		dial:    dial,
		state:   Disconnected,
		logger:  logger.With("component", "connection_manager"),
		metrics: m,
	}
}

// Get returns the live handle. A Connected handle is pinged first; when the ping fails the
// handle is discarded and exactly one fresh handle is dialed.
func (m *ConnectionManager[H]) Get(ctx context.Context) (H, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Connected:
		err := m.handle.Ping(ctx)
		if err == nil {
			return m.handle, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			// the caller gave up, the handle is not to blame
			var zero H
			return zero, ctxErr
		}

		m.logger.Error(ctx, "store connection lost, reconnecting", "error", err)
		m.state = Degraded
		m.discard(ctx)

		h, err := m.connect(ctx)
		if err != nil {
			return h, err
		}
		m.metrics.StoreReconnected()
		m.logger.Info(ctx, "reconnected to store")
		return h, nil

	default:
		h, err := m.connect(ctx)
		if err != nil {
			return h, err
		}
		m.logger.Info(ctx, "connected to store")
		return h, nil
	}
}

// connect dials a new handle. Callers hold m.mu.
func (m *ConnectionManager[H]) connect(ctx context.Context) (H, error) {
	h, err := m.dial(ctx)
	if err != nil {
		m.state = Disconnected
		var zero H
		m.handle = zero
		return zero, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	m.handle = h
	m.state = Connected
	return h, nil
}

// discard closes the current handle, ignoring errors from an already broken link. Callers hold m.mu.
func (m *ConnectionManager[H]) discard(ctx context.Context) {
	if err := m.handle.Close(ctx); err != nil {
		m.logger.Warn(ctx, "error closing stale store connection", "error", err)
	}
	var zero H
	m.handle = zero
}

// Ping acquires the handle, which pings it, and reports whether the store is reachable
func (m *ConnectionManager[H]) Ping(ctx context.Context) error {
	_, err := m.Get(ctx)
	return err
}

// State returns the current lifecycle state
func (m *ConnectionManager[H]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close tears the handle down and returns to Disconnected from any state
func (m *ConnectionManager[H]) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Disconnected {
		return nil
	}

	err := m.handle.Close(ctx)
	var zero H
	m.handle = zero
	m.state = Disconnected
	if err != nil {
		m.logger.Error(ctx, "error closing store connection", "error", err)
		return errors.Join(domain.ErrConnection, err)
	}
	m.logger.Info(ctx, "store connection closed")
	return nil
}
