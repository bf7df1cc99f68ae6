package config

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides durable, all-or-nothing storage for the single network
// configuration record. Writes are atomic with respect to concurrent reads:
// a reader observes either the previous record or the new one, never a
// partially written row.
type Store interface {
	// Load retrieves the persisted configuration. It returns ErrNotFound
	// when no record exists or the record lacks the initialized marker, and
	// an error wrapping ErrInvalidConfig when the record fails validation.
	// On any error the caller's in-memory configuration must be left as is.
	Load() (NetworkConfig, error)

	// Save validates and persists the configuration, replacing any previous
	// record in a single transaction.
	Save(cfg NetworkConfig) error

	// Close releases the underlying database resources. It is safe to call
	// Close multiple times.
	Close() error
}

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS network_config (
    name           TEXT PRIMARY KEY,
    network_name   TEXT NOT NULL,
    network_secret TEXT NOT NULL,
    ground_host    TEXT NOT NULL,
    ground_port    INTEGER NOT NULL,
    device_id      TEXT NOT NULL,
    initialized    INTEGER NOT NULL
);`

const (
	recordName = "uav"

	upsertConfigSQL = `
INSERT INTO network_config (name, network_name, network_secret, ground_host, ground_port, device_id, initialized)
VALUES (?, ?, ?, ?, ?, ?, 1)
ON CONFLICT (name) DO UPDATE SET
    network_name = excluded.network_name,
    network_secret = excluded.network_secret,
    ground_host = excluded.ground_host,
    ground_port = excluded.ground_port,
    device_id = excluded.device_id,
    initialized = excluded.initialized;`

	selectConfigSQL = `
SELECT network_name, network_secret, ground_host, ground_port, device_id, initialized
FROM network_config WHERE name = ?;`
)

// SqliteStore keeps the configuration record in a WAL-mode SQLite database
// local to the device.
type SqliteStore struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the database at dbPath. The
// database file and schema are created lazily on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.dbPath))
		if err != nil {
			s.dbErr = fmt.Errorf("opening connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.db = db
	})

	return s.db, s.dbErr
}

func (s *SqliteStore) Load() (NetworkConfig, error) {
	var cfg NetworkConfig

	db, err := s.getDB()
	if err != nil {
		return cfg, fmt.Errorf("getting connection: %w", err)
	}

	var port int64
	var initialized int64
	err = db.QueryRow(selectConfigSQL, recordName).Scan(
		&cfg.NetworkName,
		&cfg.NetworkSecret,
		&cfg.GroundHost,
		&port,
		&cfg.DeviceID,
		&initialized,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return NetworkConfig{}, ErrNotFound
	case err != nil:
		return NetworkConfig{}, fmt.Errorf("scanning configuration: %w", err)
	}

	if initialized == 0 {
		return NetworkConfig{}, ErrNotFound
	}
	if port < 1 || port > 65535 {
		return NetworkConfig{}, fmt.Errorf("%w: ground port %d out of range", ErrInvalidConfig, port)
	}

	cfg.GroundPort = uint16(port)
	cfg.Initialized = true

	if err = cfg.Validate(); err != nil {
		return NetworkConfig{}, err
	}
	return cfg, nil
}

func (s *SqliteStore) Save(cfg NetworkConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	if _, err = db.Exec(upsertConfigSQL,
		recordName,
		cfg.NetworkName,
		cfg.NetworkSecret,
		cfg.GroundHost,
		int64(cfg.GroundPort),
		cfg.DeviceID,
	); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}
