package modules

import (
	"context"

	"github.com/riverqueue/river"

	"novostudio.tech/foundation/internal/auth"
	"novostudio.tech/foundation/internal/jobs"
)

// AuthModule owns registration, login, the OTP flow and the OTP cleanup
// job.
type AuthModule struct {
	infra   *Infrastructure
	handler *auth.Handler
}

func NewAuthModule(infra *Infrastructure) *AuthModule {
	svc := auth.NewService(infra.DB.DB, infra.JWTCfg, infra.AuthCfg, infra.Sender, infra.Pools)
	return &AuthModule{
		infra:   infra,
		handler: auth.NewHandler(svc),
	}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Mount(groups RouteGroups) {
	m.handler.Mount(groups.Public, groups.Protected)
}

func (m *AuthModule) RegisterWorkers(workers *river.Workers) {
	river.AddWorker(workers, jobs.NewOTPCleanupWorker(m.infra.DB.DB, jobs.DefaultOTPRetention))
}

func (m *AuthModule) Shutdown(context.Context) error { return nil }
