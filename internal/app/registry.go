package app

import "github.com/mquillen/inktally/internal/domain"

// Registry is the ordered collection of live targets. Reset swaps an expiring
// target for its successor in place, so there is never a window where the slot is
// empty or the ordering shifts.
type Registry struct {
	targets []domain.Target
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a target.
func (r *Registry) Add(t domain.Target) {
	r.targets = append(r.targets, t)
}

// Remove deletes the target with the given id, preserving order. Returns false if
// no such target exists.
func (r *Registry) Remove(id string) bool {
	for i, t := range r.targets {
		if t.Config().ID == id {
			r.targets = append(r.targets[:i], r.targets[i+1:]...)
			return true
		}
	}
	return false
}

// Replace atomically swaps the target with the given id for its successor,
// keeping its position. Returns false if no such target exists.
func (r *Registry) Replace(id string, successor domain.Target) bool {
	for i, t := range r.targets {
		if t.Config().ID == id {
			r.targets[i] = successor
			return true
		}
	}
	return false
}

// Find returns the target with the given id.
func (r *Registry) Find(id string) (domain.Target, bool) {
	for _, t := range r.targets {
		if t.Config().ID == id {
			return t, true
		}
	}
	return nil, false
}

// All returns the live targets in registry order. The returned slice is a copy; the
// targets themselves are shared.
func (r *Registry) All() []domain.Target {
	return append([]domain.Target(nil), r.targets...)
}

// Len returns the number of live targets.
func (r *Registry) Len() int {
	return len(r.targets)
}
