package admin

import (
	"reflect"

	"go.uber.org/zap"

	"novostudio.tech/foundation/internal/entity"
	"novostudio.tech/foundation/internal/pkg/logger"
)

// Discovery inspects the assembled set of controllers. Results are computed
// on every call from the controllers it was built with; nothing is cached,
// so the view always matches what the router actually mounted.
type Discovery struct {
	controllers []any
}

// NewDiscovery builds a discovery view over any mix of controllers. Entries
// that do not implement Mountable are kept but report no metadata.
func NewDiscovery(controllers ...any) *Discovery {
	return &Discovery{controllers: controllers}
}

// ControllerWithMetadata pairs a mounted controller with its metadata.
type ControllerWithMetadata struct {
	Controller Mountable
	Metadata   *Metadata
}

// ControllerMetadata returns the admin metadata of ctl, or nil when ctl is
// not an admin controller.
func (d *Discovery) ControllerMetadata(ctl any) *Metadata {
	if m, ok := ctl.(Mountable); ok {
		return m.AdminMetadata()
	}
	return nil
}

// Controllers returns the admin controllers among the assembled set.
func (d *Discovery) Controllers() []ControllerWithMetadata {
	var out []ControllerWithMetadata
	for _, ctl := range d.controllers {
		if m, ok := ctl.(Mountable); ok {
			out = append(out, ControllerWithMetadata{Controller: m, Metadata: m.AdminMetadata()})
		}
	}
	return out
}

// Entities returns the distinct entity descriptors served by the admin
// controllers, in mount order.
func (d *Discovery) Entities() []*entity.Descriptor {
	seen := make(map[reflect.Type]struct{})
	var out []*entity.Descriptor
	for _, c := range d.Controllers() {
		desc := c.Metadata.Entity
		if _, ok := seen[desc.Type]; ok {
			continue
		}
		seen[desc.Type] = struct{}{}
		out = append(out, desc)
	}
	return out
}

// HasEntity reports whether some admin controller serves the entity type.
func (d *Discovery) HasEntity(t reflect.Type) bool {
	for _, desc := range d.Entities() {
		if desc.Type == t {
			return true
		}
	}
	return false
}

// Count returns the number of admin controllers.
func (d *Discovery) Count() int {
	return len(d.Controllers())
}

// LogSummary writes one line describing the mounted admin surface.
func (d *Discovery) LogSummary() {
	resources := make([]string, 0, d.Count())
	for _, c := range d.Controllers() {
		resources = append(resources, c.Metadata.Resource)
	}
	logger.Info("admin discovery complete",
		zap.Int("controllers", d.Count()),
		zap.Strings("resources", resources),
	)
}

// ValidateAgainst compares the discovered entity set with the registry the
// controllers registered into. A mismatch means a controller was declared
// but never handed to the router, or vice versa; it is logged and tolerated.
func (d *Discovery) ValidateAgainst(reg *Registry) {
	discovered := d.Entities()
	if len(discovered) == reg.Len() {
		return
	}
	missing := make([]string, 0)
	for _, desc := range reg.Snapshot() {
		if !d.HasEntity(desc.Type) {
			missing = append(missing, desc.Resource)
		}
	}
	logger.Warn("admin registry and mounted controllers disagree",
		zap.Int("registered", reg.Len()),
		zap.Int("mounted", len(discovered)),
		zap.Strings("unmounted", missing),
	)
}
