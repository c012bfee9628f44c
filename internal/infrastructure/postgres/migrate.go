package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/internal/config"
)

const migrationsTable = "tikshop_schema_migrations"

// RunMigrations brings the products table and its notify trigger up to date.
// It is a no-op when migrations are disabled.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if cfg == nil || !cfg.Migrations.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source := "file://" + filepath.ToSlash(cfg.Migrations.Path)
	runner, err := migrate.NewWithDatabaseInstance(source, cfg.Database.Name, driver)
	if err != nil {
		return fmt.Errorf("load migrations from %s: %w", cfg.Migrations.Path, err)
	}
	defer runner.Close()

	before, _, _ := runner.Version()
	switch err := runner.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("catalog schema up to date", zap.Uint("version", before))
		return nil
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, dirty, err := runner.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info("catalog schema migrated",
		zap.Uint("from", before),
		zap.Uint("to", after),
		zap.Bool("dirty", dirty),
	)
	return nil
}
