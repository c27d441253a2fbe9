package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"banking-ledger/migrations"
)

// Connect opens a Postgres pool and pings it, retrying with exponential
// backoff up to retries times.
func Connect(ctx context.Context, dsn string, retries int, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if retries < 0 {
		retries = 0
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	attempt := 0
	ping := func() error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("Database not reachable yet", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("Successfully connected to database", "attempts", attempt)
	return db, nil
}

// RunMigrations applies the embedded schema migrations. It uses its own
// connection because closing the migrate instance closes the database.
func RunMigrations(dsn string, logger *slog.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open postgres connection: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		driver.Close()
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No new migrations found")
			return nil
		}

		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			logger.Error("Migration failed with dirty version", "version", dirtyErr.Version)
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		logger.Error("Migration failed", "error", err)
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Migrations applied", "version", version)
	return nil
}
