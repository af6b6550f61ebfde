// Package flight provides per-key single-flight coordination: while a call
// for a key is in flight, concurrent callers for the same key block and share
// its result instead of running the function again.
package flight

import "sync"

type call struct {
	done chan struct{}
	val  any
	err  error
}

type Group struct {
	mu       sync.Mutex
	inflight map[string]*call
}

func NewGroup() *Group {
	return &Group{inflight: map[string]*call{}}
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call and returns its result. The in-flight slot is
// cleared before waiters wake, so a call made after a failure runs fn again
// rather than observing the stale error.
func (g *Group) Do(key string, fn func() (any, error)) (any, error) {
	g.mu.Lock()
	if c, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.val, c.err
	}
	c := &call{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// Inflight reports whether a call for key is currently running.
func (g *Group) Inflight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[key]
	return ok
}
