package modules

import (
	"context"

	"github.com/riverqueue/river"

	"novostudio.tech/foundation/internal/admin"
	"novostudio.tech/foundation/internal/entity"
)

// AdminModule declares the entities exposed in the admin panel. Adding a
// resource is one more NewController call here; routes, validation and
// pagination come from the shared controller.
type AdminModule struct {
	controllers []admin.Mountable
}

func NewAdminModule(infra *Infrastructure) *AdminModule {
	users := admin.NewController[entity.User](infra.Registry, entity.Users, admin.Options{
		Tag: "Admin / Users",
		CreateRules: map[string]string{
			"email":        "required,email",
			"display_name": "omitempty,max=100",
		},
		UpdateRules: map[string]string{
			"email":        "omitempty,email",
			"display_name": "omitempty,max=100",
		},
	})

	catalog := admin.NewController[entity.Product](infra.Registry, entity.Products, admin.Options{
		Tag: "Admin / Products",
		CreateRules: map[string]string{
			"sku":         "required,min=1",
			"name":        "required,min=1",
			"price_cents": "omitempty,min=0",
			"currency":    "omitempty,len=3",
		},
		UpdateRules: map[string]string{
			"sku":         "omitempty,min=1",
			"name":        "omitempty,min=1",
			"price_cents": "omitempty,min=0",
			"currency":    "omitempty,len=3",
		},
	})

	controllers := []admin.Mountable{users, catalog}
	for _, ctl := range controllers {
		ctl.Bind(infra.DB.DB)
	}
	return &AdminModule{controllers: controllers}
}

func (m *AdminModule) Name() string { return "admin" }

// Controllers exposes the mounted set for discovery.
func (m *AdminModule) Controllers() []any {
	out := make([]any, len(m.controllers))
	for i, ctl := range m.controllers {
		out[i] = ctl
	}
	return out
}

func (m *AdminModule) Mount(groups RouteGroups) {
	for _, ctl := range m.controllers {
		ctl.Mount(groups.Admin)
	}
}

func (m *AdminModule) RegisterWorkers(_ *river.Workers) {}

func (m *AdminModule) Shutdown(context.Context) error { return nil }
