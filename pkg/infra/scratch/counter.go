package scratch

import "sync"

// Counter is a Tracker that keeps the set of resources still held.
type Counter struct {
	mu       sync.Mutex
	open     map[string]struct{}
	acquired int
	released int
}

func NewCounter() *Counter {
	return &Counter{open: make(map[string]struct{})}
}

func (c *Counter) Acquired(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[name] = struct{}{}
	c.acquired++
}

func (c *Counter) Released(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.open, name)
	c.released++
}

// Open returns the number of resources acquired but not yet released.
func (c *Counter) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.open)
}

func (c *Counter) Totals() (acquired, released int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquired, c.released
}
