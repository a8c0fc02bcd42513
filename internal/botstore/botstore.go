// Package botstore persists per-plugin state across restarts: whether
// a plugin is enabled. Access-control settings are not stored. Two
// sqlite backends are supported: "cgo" via mattn/go-sqlite3 and "pure"
// via modernc.org/sqlite, selected by config.StoreConfig.Driver so a
// deployment without a C toolchain can still run.
package botstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Store is the persisted plugin-state port.
type Store interface {
	SetEnabled(pluginName string, enabled bool) error
	GetEnabled(pluginName string) (enabled bool, found bool, err error)
	Close() error
}

// SQLStore is a Store backed by database/sql over one of the two
// registered sqlite drivers.
type SQLStore struct {
	db *sql.DB
}

// Open opens (and migrates, if necessary) a sqlite database at path
// using the backend named by driverName ("cgo" or "pure").
func Open(driverName, path string) (*SQLStore, error) {
	sqlDriver, err := resolveDriver(driverName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(sqlDriver, path)
	if err != nil {
		return nil, fmt.Errorf("botstore: open %s: %w", path, err)
	}
	// sqlite does not tolerate concurrent writers well; serialize
	// access from the Go side rather than fighting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func resolveDriver(name string) (string, error) {
	switch name {
	case "cgo":
		return "sqlite3", nil
	case "pure":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("botstore: unknown driver %q (want \"cgo\" or \"pure\")", name)
	}
}

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS plugin_state (
		name    TEXT PRIMARY KEY,
		enabled INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("botstore: migrate: %w", err)
	}
	return nil
}

// SetEnabled persists whether pluginName is enabled, creating or
// updating its row.
func (s *SQLStore) SetEnabled(pluginName string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := s.db.Exec(`INSERT INTO plugin_state(name, enabled) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET enabled = excluded.enabled`, pluginName, v)
	if err != nil {
		return fmt.Errorf("botstore: set enabled %s: %w", pluginName, err)
	}
	return nil
}

// GetEnabled returns the persisted enabled flag for pluginName. found
// is false if no row has ever been written for this plugin, in which
// case the caller should fall back to its config-file default.
func (s *SQLStore) GetEnabled(pluginName string) (enabled bool, found bool, err error) {
	var v int
	err = s.db.QueryRow(`SELECT enabled FROM plugin_state WHERE name = ?`, pluginName).Scan(&v)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("botstore: get enabled %s: %w", pluginName, err)
	}
	return v != 0, true, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
