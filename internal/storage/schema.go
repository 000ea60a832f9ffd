package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to history_metadata when the schema is created.
const SchemaVersion = "1"

// CreateSchema creates the history tables and indexes if they do not exist.
// Uses a transaction so a partially created schema is never left behind.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"scans", createScansTable},
		{"occurrences", createOccurrencesTable},
		{"history_metadata", createMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
		INSERT INTO history_metadata (key, value, updated_at)
		VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap history_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from history_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='history_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check history_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM history_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in history_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createScansTable = `
CREATE TABLE IF NOT EXISTS scans (
    scan_id TEXT PRIMARY KEY,                    -- UUID
    path TEXT NOT NULL,                          -- Scanned file as given on the command line
    content_hash TEXT NOT NULL,                  -- SHA-256 of the scanned bytes
    tiers TEXT NOT NULL,                         -- Selected tiers, e.g. "1,2"
    total INTEGER NOT NULL DEFAULT 0,            -- Number of occurrences
    malformed INTEGER NOT NULL DEFAULT 0,        -- Number of malformed constructs
    summary TEXT NOT NULL,                       -- JSON encoded Summary
    created_at TEXT NOT NULL                     -- Fixed-width UTC timestamp, sorts lexically
)
`

const createOccurrencesTable = `
CREATE TABLE IF NOT EXISTS occurrences (
    scan_id TEXT NOT NULL,
    seq INTEGER NOT NULL,                        -- Position in the report
    rule_id TEXT NOT NULL,
    tier INTEGER NOT NULL,
    category TEXT NOT NULL,
    label TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL DEFAULT 0,
    identifier TEXT NOT NULL DEFAULT '',
    names TEXT,                                  -- JSON array, NULL when empty
    snippet TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (scan_id, seq),
    FOREIGN KEY (scan_id) REFERENCES scans(scan_id) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS history_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_scans_path ON scans(path)",
	"CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_occurrences_category ON occurrences(category)",
}
