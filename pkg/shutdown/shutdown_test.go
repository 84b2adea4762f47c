package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsEveryCallback(t *testing.T) {
	m := NewManager()
	var n int32
	for i := 0; i < 3; i++ {
		m.OnShutdown("c", func(context.Context) { atomic.AddInt32(&n, 1) })
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, m.Shutdown(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&n))
}

func TestShutdownTimesOut(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	defer close(release)
	m.OnShutdown("stuck", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, m.Shutdown(ctx))
}

func TestShutdownWithoutCallbacks(t *testing.T) {
	assert.True(t, NewManager().Shutdown(context.Background()))
}
