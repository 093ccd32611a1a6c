package host

import (
	"sync"

	"github.com/platinummonkey/patchbridge/pkg/plugins"
)

// Handles maps the int64 tokens the native core holds onto live plugin
// instances. Zero is never issued and means "no plugin".
type Handles struct {
	mu   sync.RWMutex
	next int64
	m    map[int64]*plugins.Instance
}

// NewHandles creates an empty table
func NewHandles() *Handles {
	return &Handles{m: make(map[int64]*plugins.Instance)}
}

// Put stores inst and returns its handle, or 0 for a nil instance
func (h *Handles) Put(inst *plugins.Instance) int64 {
	if inst == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.m[h.next] = inst
	return h.next
}

// Get returns the instance behind handle, or nil
func (h *Handles) Get(handle int64) *plugins.Instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.m[handle]
}

// Delete forgets handle and returns what it pointed at
func (h *Handles) Delete(handle int64) *plugins.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst := h.m[handle]
	delete(h.m, handle)
	return inst
}

// Drain empties the table and returns every instance it held
func (h *Handles) Drain() []*plugins.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*plugins.Instance, 0, len(h.m))
	for id, inst := range h.m {
		out = append(out, inst)
		delete(h.m, id)
	}
	return out
}

// Len returns the number of live handles
func (h *Handles) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.m)
}
