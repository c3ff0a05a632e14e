package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"novostudio.tech/foundation/internal/admin"
	"novostudio.tech/foundation/internal/api/middleware"
	"novostudio.tech/foundation/internal/auth"
	"novostudio.tech/foundation/internal/config"
	"novostudio.tech/foundation/internal/infrastructure"
	"novostudio.tech/foundation/internal/notification"
	"novostudio.tech/foundation/internal/pkg/worker"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Sender      notification.Sender
	Registry    *admin.Registry
	RiverClient *river.Client[pgx.Tx]
	JWTCfg      middleware.JWTConfig
	AuthCfg     auth.Config
}

// NewInfrastructure initializes the database, worker pools and the shared
// services modules build on.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	// Dev-mode: auto-create application tables + River queue tables.
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		MailerPoolSize:  cfg.Worker.MailerPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	return &Infrastructure{
		Config:   cfg,
		DB:       db,
		Pools:    pools,
		Sender:   notification.LogSender{},
		Registry: admin.NewRegistry(),
		JWTCfg: middleware.JWTConfig{
			SigningKey: []byte(cfg.Auth.Secret),
			Issuer:     cfg.Auth.Issuer,
			ExpiresIn:  cfg.Auth.TokenTTL,
		},
		AuthCfg: auth.Config{
			TokenTTL:   cfg.Auth.TokenTTL,
			OTPTTL:     cfg.Auth.OTPTTL,
			OTPLength:  cfg.Auth.OTPLength,
			BcryptCost: cfg.Auth.BcryptCost,
		},
	}, nil
}

// InitRiver initializes the River client on top of a prepared worker
// registry.
func (i *Infrastructure) InitRiver(workers *river.Workers) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
