package discovery

import "sync"

// MergeOutcome reports what a registry merge did.
type MergeOutcome int

const (
	// MergeInserted means the address had not been seen before.
	MergeInserted MergeOutcome = iota

	// MergeUpdated means an existing record was overwritten.
	MergeUpdated
)

// String returns a short name for the outcome.
func (o MergeOutcome) String() string {
	if o == MergeInserted {
		return "inserted"
	}
	return "updated"
}

// DeviceFunc is an incremental notification callback. It is invoked
// synchronously while the registry's lock is held and must not block.
type DeviceFunc func(Device, MergeOutcome)

// Registry is an address-keyed store of discovered devices. It
// deduplicates announcements by source address, last write wins, and
// preserves first-seen order for reproducible snapshots.
//
// A registry belongs to exactly one scan session and is never shared
// between concurrent scans.
type Registry struct {
	mu        sync.Mutex
	devices   map[string]Device
	order     []string
	listeners []DeviceFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
	}
}

// Subscribe registers a callback fired on every merge. Must be called
// before the scan starts feeding the registry.
func (r *Registry) Subscribe(fn DeviceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Merge reconciles a decoded announcement with the registry. An unseen
// address is inserted; a known address has its fields and LastSeen
// overwritten while FirstSeen is preserved. Announcements may arrive in
// any order; the merge is last-write-wins per address.
func (r *Registry) Merge(d Device) MergeOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome := MergeInserted
	if prev, ok := r.devices[d.Addr]; ok {
		outcome = MergeUpdated
		d.FirstSeen = prev.FirstSeen
	} else {
		if d.FirstSeen.IsZero() {
			d.FirstSeen = d.LastSeen
		}
		r.order = append(r.order, d.Addr)
	}
	r.devices[d.Addr] = d

	for _, fn := range r.listeners {
		fn(d, outcome)
	}
	return outcome
}

// Snapshot returns all devices in first-seen order.
func (r *Registry) Snapshot() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, r.devices[addr])
	}
	return out
}

// Len returns the number of distinct addresses merged so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
