package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// single writer; poll cycles for many instances share this handle
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaInstances = `
CREATE TABLE IF NOT EXISTS instances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    service_id TEXT NOT NULL,
    api_token TEXT NOT NULL,
    map_name TEXT NOT NULL DEFAULT '',
    restart_hours TEXT NOT NULL DEFAULT '[]',
    platform TEXT NOT NULL DEFAULT 'pc',
    log_dir TEXT NOT NULL,
    spawner_path TEXT NOT NULL,
    gameplay_config_path TEXT NOT NULL DEFAULT '',
    channels TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL
);
`

const schemaInstanceCursors = `
CREATE TABLE IF NOT EXISTS instance_cursors (
    instance_id INTEGER PRIMARY KEY REFERENCES instances(id),
    last_line TEXT NOT NULL DEFAULT '',
    last_poll_at TIMESTAMP,
    last_gc_at TIMESTAMP
);
`

const schemaPlayerLocations = `
CREATE TABLE IF NOT EXISTS player_locations (
    instance_id INTEGER NOT NULL REFERENCES instances(id),
    actor TEXT NOT NULL,
    x REAL NOT NULL,
    y REAL NOT NULL,
    z REAL NOT NULL,
    seen_at TIMESTAMP NOT NULL,
    PRIMARY KEY (instance_id, actor)
);
`

const schemaPurchases = `
CREATE TABLE IF NOT EXISTS purchases (
    id TEXT PRIMARY KEY,
    instance_id INTEGER NOT NULL REFERENCES instances(id),
    actor_name TEXT NOT NULL,
    item_class TEXT NOT NULL,
    status TEXT NOT NULL,
    pos_x REAL,
    pos_y REAL,
    pos_z REAL,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    fulfilled_at TIMESTAMP
);
`

const indexPurchasesStatus = `
CREATE INDEX IF NOT EXISTS purchases_instance_status ON purchases (instance_id, status);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaInstances,
		schemaInstanceCursors,
		schemaPlayerLocations,
		schemaPurchases,
		indexPurchasesStatus,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
