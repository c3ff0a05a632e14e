// Package modules contains domain-oriented dependency modules for the
// composition root.
//
// Import Path: novostudio.tech/foundation/internal/app/modules
package modules

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
)

// RouteGroups are the router mount points handed to each module. Public
// routes skip authentication, Protected requires a valid token, Admin sits
// under /admin inside the protected tree.
type RouteGroups struct {
	Public    *gin.RouterGroup
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup
}

// Module represents a domain-specific dependency unit in the composition
// root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// Mount registers the module's routes.
	Mount(RouteGroups)

	// RegisterWorkers registers module workers into a shared River worker
	// registry.
	RegisterWorkers(*river.Workers)

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
