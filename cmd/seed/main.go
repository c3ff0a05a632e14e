// Package main provides idempotent data seeding: a default admin account
// and a small sample catalog for local development.
//
// Database and River migrations are expected to have run before seeding
// (DATABASE_AUTO_MIGRATE=true on first server start, or externally).
//
// Import Path: novostudio.tech/foundation/cmd/seed
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"novostudio.tech/foundation/internal/auth"
	"novostudio.tech/foundation/internal/config"
	"novostudio.tech/foundation/internal/infrastructure"
	"novostudio.tech/foundation/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	logger.Info("starting data seeding...")

	if err := seedAdminUser(ctx, db, cfg); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if err := seedSampleProducts(ctx, db); err != nil {
		return fmt.Errorf("seed sample products: %w", err)
	}

	logger.Info("seeding completed")
	return nil
}

// seedAdminUser creates the initial account if it does not exist. Email and
// password come from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD, with dev-only
// defaults.
func seedAdminUser(ctx context.Context, db *infrastructure.DatabaseClients, cfg *config.Config) error {
	email := auth.NormalizeEmail(envOr("SEED_ADMIN_EMAIL", "admin@example.com"))
	password := envOr("SEED_ADMIN_PASSWORD", "changeme-immediately")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res, err := db.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, display_name, email_verified)
		 VALUES ($1, $2, 'Administrator', true)
		 ON CONFLICT (email) DO NOTHING`,
		email, string(hash),
	)
	if err != nil {
		return err
	}
	inserted, _ := res.RowsAffected()
	if inserted > 0 {
		logger.Info("admin user created", zap.String("email", email))
	} else {
		logger.Info("admin user already exists", zap.String("email", email))
	}
	return nil
}

var sampleProducts = []struct {
	sku, name, description string
	priceCents             int64
}{
	{"ANVIL-100", "Anvil", "Drop-forged 100kg anvil.", 24900},
	{"BELLOWS-20", "Bellows", "Double-chamber forge bellows.", 8900},
	{"TONGS-STD", "Tongs", "Flat-jaw blacksmith tongs.", 3500},
}

func seedSampleProducts(ctx context.Context, db *infrastructure.DatabaseClients) error {
	for _, p := range sampleProducts {
		_, err := db.DB.ExecContext(ctx,
			`INSERT INTO products (sku, name, description, price_cents)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (sku) DO NOTHING`,
			p.sku, p.name, p.description, p.priceCents,
		)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", p.sku, err)
		}
	}
	logger.Info("sample catalog ensured", zap.Int("products", len(sampleProducts)))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
