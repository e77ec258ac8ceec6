package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var EmbeddedMigrationsFS embed.FS

// RunMigrations applies all embedded up migrations to the database at dsn.
// It uses its own connection because closing the migrator closes the handle.
func RunMigrations(dsn string) error {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open for migrations: %w", err)
	}

	src, err := iofs.New(EmbeddedMigrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		log.Printf("[DB]: schema at version %d (dirty=%t)", version, dirty)
	}
	return nil
}
