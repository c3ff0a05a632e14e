package modules

import (
	"context"

	"github.com/riverqueue/river"

	"novostudio.tech/foundation/internal/products"
)

// ProductsModule serves the public catalog.
type ProductsModule struct {
	handler *products.Handler
}

func NewProductsModule(infra *Infrastructure) *ProductsModule {
	return &ProductsModule{handler: products.NewHandler(infra.DB.DB)}
}

func (m *ProductsModule) Name() string { return "products" }

func (m *ProductsModule) Mount(groups RouteGroups) {
	m.handler.Mount(groups.Public)
}

func (m *ProductsModule) RegisterWorkers(_ *river.Workers) {}

func (m *ProductsModule) Shutdown(context.Context) error { return nil }
