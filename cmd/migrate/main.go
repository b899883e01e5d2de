package main

// Apply the orders schema:
//   go run ./cmd/migrate
// DATABASE_URL must point at the target Postgres database.

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/storage/db"
	"bookreport-backend/internal/shared/telemetry"
)

const migrateTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	if err := run(ctx, cfg.DatabaseURL); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string) error {
	sqlDB, err := db.Connect(ctx, databaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return db.RunMigrations(ctx, sqlDB)
}
