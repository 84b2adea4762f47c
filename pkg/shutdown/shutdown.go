// Package shutdown runs registered cleanup callbacks concurrently when the
// process stops.
package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/xchange/pkg/logger"
)

// Handler releases one resource. It should return once ctx is done.
type Handler func(ctx context.Context)

type Manager struct {
	mu        sync.Mutex
	callbacks []namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown registers fn under name, used only in logs.
func (m *Manager) OnShutdown(name string, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: fn})
}

// Shutdown runs every callback and waits for all of them or for ctx. It
// reports whether every callback finished in time.
func (m *Manager) Shutdown(ctx context.Context) bool {
	m.mu.Lock()
	callbacks := append([]namedHandler(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return true
	}
	logger.Infof("shutting down %d components", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(cb namedHandler) {
			defer wg.Done()
			cb.fn(ctx)
			logger.Debugf("%s stopped", cb.name)
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return true
	case <-ctx.Done():
		logger.Warnf("shutdown timed out: %v", ctx.Err())
		return false
	}
}
