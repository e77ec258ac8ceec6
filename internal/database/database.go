// Package database provides the sqlite widget store behind the reference backend
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/go-while/go-widgets/internal/models"
)

var (
	ErrWidgetNotFound = errors.New("widget not found")
	ErrWidgetExists   = errors.New("widget already exists")
	ErrLocked         = errors.New("database is in use by another process")
)

// Database is the widget store. All methods are safe for concurrent use.
type Database struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// OpenDatabase opens (creating if needed) the sqlite file at path, takes an
// exclusive lock next to it so only one backend serves the file, and applies
// migrations.
func OpenDatabase(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("database path must be set")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	if err := RunMigrations(dsn); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	d := &Database{db: db, lock: lock, path: path}
	if err := d.syncNameKeys(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	log.Printf("[DB]: opened widget store %s", path)
	return d, nil
}

// syncNameKeys rewrites name_key for rows whose key was filled by SQL lower(),
// which only folds ASCII
func (d *Database) syncNameKeys(ctx context.Context) error {
	return retryableTransaction(ctx, d.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name, name_key FROM widgets`)
		if err != nil {
			return fmt.Errorf("read name keys: %w", err)
		}
		stale := map[int64]string{}
		for rows.Next() {
			var id int64
			var name, key string
			if err := rows.Scan(&id, &name, &key); err != nil {
				rows.Close()
				return fmt.Errorf("scan name key: %w", err)
			}
			if want := models.NormalizeName(name); want != key {
				stale[id] = want
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("read name keys: %w", err)
		}
		for id, key := range stale {
			if _, err := tx.ExecContext(ctx, `UPDATE widgets SET name_key = ? WHERE id = ?`, key, id); err != nil {
				return fmt.Errorf("update name key of widget %d: %w", id, err)
			}
		}
		if len(stale) > 0 {
			log.Printf("[DB]: rewrote %d widget name keys", len(stale))
		}
		return nil
	})
}

// Shutdown closes the database and releases the file lock
func (d *Database) Shutdown() error {
	err := d.db.Close()
	if uerr := d.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	log.Printf("[DB]: closed widget store %s", d.path)
	return err
}

// Ping checks the connection
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// ListWidgets returns all widgets in creation order
func (d *Database) ListWidgets(ctx context.Context) ([]models.Widget, error) {
	rows, err := retryableQuery(ctx, d.db, `SELECT name, description, price FROM widgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	defer rows.Close()

	widgets := []models.Widget{}
	for rows.Next() {
		var w models.Widget
		if err := rows.Scan(&w.Name, &w.Description, &w.Price); err != nil {
			return nil, fmt.Errorf("scan widget: %w", err)
		}
		widgets = append(widgets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	return widgets, nil
}

// GetWidget returns the named widget. Names are matched on models.NormalizeName.
func (d *Database) GetWidget(ctx context.Context, name string) (*models.Widget, error) {
	var w models.Widget
	err := retryableQueryRowScan(ctx, d.db,
		`SELECT name, description, price FROM widgets WHERE name_key = ?`,
		[]any{models.NormalizeName(name)}, &w.Name, &w.Description, &w.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWidgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get widget %q: %w", name, err)
	}
	return &w, nil
}

// InsertWidget stores a new widget or returns ErrWidgetExists
func (d *Database) InsertWidget(ctx context.Context, w models.Widget) error {
	_, err := retryableExec(ctx, d.db,
		`INSERT INTO widgets (name, name_key, description, price) VALUES (?, ?, ?, ?)`,
		w.Name, models.NormalizeName(w.Name), w.Description, w.Price)
	if isUniqueViolation(err) {
		return ErrWidgetExists
	}
	if err != nil {
		return fmt.Errorf("insert widget %q: %w", w.Name, err)
	}
	return nil
}

// UpdateWidget applies the non-nil fields of upd and returns the stored widget
func (d *Database) UpdateWidget(ctx context.Context, name string, upd models.WidgetUpdate) (*models.Widget, error) {
	var updated models.Widget
	key := models.NormalizeName(name)
	err := retryableTransaction(ctx, d.db, func(tx *sql.Tx) error {
		var description sql.NullString
		var price sql.NullFloat64
		if upd.Description != nil {
			description = sql.NullString{String: *upd.Description, Valid: true}
		}
		if upd.Price != nil {
			price = sql.NullFloat64{Float64: *upd.Price, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE widgets
			    SET description = COALESCE(?, description),
			        price = COALESCE(?, price),
			        updated_at = CURRENT_TIMESTAMP
			  WHERE name_key = ?`,
			description, price, key)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrWidgetNotFound
		}
		return tx.QueryRowContext(ctx,
			`SELECT name, description, price FROM widgets WHERE name_key = ?`, key,
		).Scan(&updated.Name, &updated.Description, &updated.Price)
	})
	if errors.Is(err, ErrWidgetNotFound) {
		return nil, ErrWidgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update widget %q: %w", name, err)
	}
	return &updated, nil
}

// DeleteWidget removes the named widget or returns ErrWidgetNotFound
func (d *Database) DeleteWidget(ctx context.Context, name string) error {
	res, err := retryableExec(ctx, d.db, `DELETE FROM widgets WHERE name_key = ?`, models.NormalizeName(name))
	if err != nil {
		return fmt.Errorf("delete widget %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete widget %q: %w", name, err)
	}
	if n == 0 {
		return ErrWidgetNotFound
	}
	return nil
}
