// Package store opens the user repository for the configured driver.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/config"
	repo "github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/migrations"
	pginfra "github.com/oksasatya/go-user-directory/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/sqlite"
)

// Open migrates the schema and returns the repository for cfg.StoreDriver along
// with a func releasing its connections.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repo.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.OpenMigrated(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewUserRepository(db), func() { _ = db.Close() }, nil

	case config.DriverPostgres:
		if err := migratePostgres(cfg.PostgresDSN(), logger); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return pginfra.NewUserRepository(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// migratePostgres runs migrations over database/sql with the pgx stdlib driver.
func migratePostgres(dsn string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return migrations.Up(db, config.DriverPostgres, logger)
}
