package console

import (
	"sync"
)

// Registry tracks the live views in creation order. Only the Host mutates
// it, and only on the GUI thread; lookups from workers take the read lock
// and never wait on the GUI thread.
type Registry struct {
	mu      sync.RWMutex
	views   []*View
	byOwner map[Owner]*View
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byOwner: make(map[Owner]*View)}
}

func (r *Registry) add(v *View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
	if o := v.Owner(); o != NoOwner {
		r.byOwner[o] = v
	}
}

// bind gives v to o. Each owner has at most one view and each view at most
// one owner.
func (r *Registry) bind(v *View, o Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byOwner[o]; taken {
		return ErrAlreadyBound
	}
	if !v.owner.CompareAndSwap(uint64(NoOwner), uint64(o)) {
		return ErrAlreadyBound
	}
	r.byOwner[o] = v
	return nil
}

func (r *Registry) remove(v *View) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.views {
		if cur == v {
			r.views = append(r.views[:i:i], r.views[i+1:]...)
			if o := v.Owner(); o != NoOwner && r.byOwner[o] == v {
				delete(r.byOwner, o)
			}
			return true
		}
	}
	return false
}

// FindOwnedBy returns the view bound to o, or nil.
func (r *Registry) FindOwnedBy(o Owner) *View {
	if o == NoOwner {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byOwner[o]
}

// FindAny returns the oldest live view, or nil when there is none.
func (r *Registry) FindAny() *View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.views) == 0 {
		return nil
	}
	return r.views[0]
}

// Views returns the live views in creation order.
func (r *Registry) Views() []*View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*View, len(r.views))
	copy(out, r.views)
	return out
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}
