// Package syncgroup wraps sync.WaitGroup so callers queue functions and
// never pair Add and Done by hand.
package syncgroup

import "sync"

type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	pending []func()
}

func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add queues fn for the next Run. nil is ignored.
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.pending = append(g.pending, fn)
	g.mu.Unlock()
}

// Run starts every queued function in its own goroutine and empties the
// queue. Functions added afterwards wait for the next Run.
func (g *SyncGroup) Run() {
	g.mu.Lock()
	fns := g.pending
	g.pending = nil
	g.mu.Unlock()

	g.wg.Add(len(fns))
	for _, fn := range fns {
		go func(fn func()) {
			defer g.wg.Done()
			fn()
		}(fn)
	}
}

// Wait blocks until every started function has returned.
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}

// RunAndWait is Run followed by Wait.
func (g *SyncGroup) RunAndWait() {
	g.Run()
	g.Wait()
}
