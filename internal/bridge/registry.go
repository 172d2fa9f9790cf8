package bridge

import "sync"

// Registry is the authoritative in-memory device_id -> Device map. A
// device, once inserted, is never removed for the lifetime of the run
// (spec §4.3): stale devices are simply left untouched by Discovery.
type Registry struct {
	mu      sync.RWMutex
	devices map[int64]*Device
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[int64]*Device)}
}

// Get looks up a device by ID.
func (r *Registry) Get(id int64) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// InsertIfAbsent adds a device if its ID is not already known, returning
// the device actually stored (the existing one on a race) and whether this
// call inserted it.
func (r *Registry) InsertIfAbsent(d *Device) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.devices[d.ID]; ok {
		return existing, false
	}
	r.devices[d.ID] = d
	return d, true
}

// Has reports whether a device ID is already known.
func (r *Registry) Has(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Each calls fn for every known device. fn must not mutate the Registry.
func (r *Registry) Each(fn func(*Device)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		fn(d)
	}
}

// KnownIDs returns a snapshot set of all known device IDs.
func (r *Registry) KnownIDs() map[int64]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]struct{}, len(r.devices))
	for id := range r.devices {
		out[id] = struct{}{}
	}
	return out
}
