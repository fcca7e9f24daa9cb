package recording

import (
	"sort"
	"sync"
)

// Factory builds the coordinator for a newly seen tab context.
type Factory func(tabID string) *Coordinator

// Registry maps tab IDs to their coordinators. A coordinator is created on
// first use and torn down when the tab goes away.
type Registry struct {
	mu      sync.RWMutex
	coords  map[string]*Coordinator
	factory Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{coords: make(map[string]*Coordinator), factory: factory}
}

// Get returns the coordinator for tabID, creating it if needed.
func (r *Registry) Get(tabID string) *Coordinator {
	r.mu.RLock()
	c, ok := r.coords[tabID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.coords[tabID]; ok {
		return c
	}
	c = r.factory(tabID)
	r.coords[tabID] = c
	return c
}

func (r *Registry) Lookup(tabID string) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coords[tabID]
	return c, ok
}

// Remove discards any active session of tabID and forgets the tab.
// It reports whether a session was discarded.
func (r *Registry) Remove(tabID string) bool {
	r.mu.Lock()
	c, ok := r.coords[tabID]
	delete(r.coords, tabID)
	r.mu.Unlock()
	if !ok {
		return false
	}
	return c.Discard()
}

// Statuses returns the status of every known tab, ordered by tab ID.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	coords := make([]*Coordinator, 0, len(r.coords))
	for _, c := range r.coords {
		coords = append(coords, c)
	}
	r.mu.RUnlock()

	out := make([]Status, 0, len(coords))
	for _, c := range coords {
		out = append(out, c.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.coords)
}
