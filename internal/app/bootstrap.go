// Package app is the composition root; bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"novostudio.tech/foundation/internal/admin"
	"novostudio.tech/foundation/internal/app/modules"
	"novostudio.tech/foundation/internal/config"
	"novostudio.tech/foundation/internal/infrastructure"
	"novostudio.tech/foundation/internal/jobs"
	"novostudio.tech/foundation/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
// Controller declaration populates the entity registry; discovery runs only
// after every module is constructed, so the two views can be compared.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	adminModule := modules.NewAdminModule(infra)
	allModules := []modules.Module{
		modules.NewAuthModule(infra),
		modules.NewProductsModule(infra),
		adminModule,
	}

	workers := river.NewWorkers()
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
	}
	if err := infra.InitRiver(workers); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}
	// Dead one-time codes are purged hourly, and once on startup so a long
	// downtime does not leave a backlog.
	if infra.RiverClient != nil {
		infra.RiverClient.PeriodicJobs().Add(
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return jobs.OTPCleanupArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		)
	}

	discovery := admin.NewDiscovery(adminModule.Controllers()...)
	discovery.ValidateAgainst(infra.Registry)
	discovery.LogSummary()

	openapiJSON, err := buildOpenAPIDocument(discovery)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("build openapi document: %w", err)
	}

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, infra, allModules, openapiJSON),
		DB:      infra.DB,
		Pools:   infra.Pools,
		Modules: allModules,
	}, nil
}
