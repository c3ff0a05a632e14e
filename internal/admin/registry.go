// Package admin implements the generic CRUD panel mounted under
// /admin/{resource}: an entity registry populated while controllers are
// declared, a controller factory bound to one entity type each, and a
// discovery view over the mounted controllers.
//
// The registry and discovery are deliberately two mechanisms: entity
// descriptors must be known before the database layer is wired (so
// repositories can be bound up front), while discovery can only inspect
// controllers after the application is fully assembled.
//
// Import Path: novostudio.tech/foundation/internal/admin
package admin

import (
	"reflect"
	"sync"

	"novostudio.tech/foundation/internal/entity"
)

// Registry accumulates entity descriptors during controller declaration.
// Write-mostly at startup, read once when the database layer binds
// repositories. Registration is idempotent and keyed by entity type
// identity, not by name.
type Registry struct {
	mu     sync.Mutex
	order  []*entity.Descriptor
	byType map[reflect.Type]*entity.Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]*entity.Descriptor)}
}

// Register adds a descriptor. Registering the same entity type twice is a
// no-op; the first descriptor wins.
func (r *Registry) Register(d *entity.Descriptor) {
	if d == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byType[d.Type]; ok {
		return
	}
	r.byType[d.Type] = d
	r.order = append(r.order, d)
}

// Snapshot returns the registered descriptors in registration order.
func (r *Registry) Snapshot() []*entity.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether an entity type is registered.
func (r *Registry) Has(t reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byType[t]
	return ok
}

// Len returns the number of registered entity types.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
