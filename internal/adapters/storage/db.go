package storage

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is bumped whenever the schema below changes shape.
const SchemaVersion = 1

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Weekday columns are set for template slots, start_at/end_at for dated
	// ones. Insertion order is the rowid.
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS slot (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		mode TEXT NOT NULL CHECK (mode IN ('weekday', 'dated')),
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		slot_type TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		start_day INTEGER,
		start_hour INTEGER,
		start_minute INTEGER,
		end_day INTEGER,
		end_hour INTEGER,
		end_minute INTEGER,
		start_at TEXT,
		end_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_slot_branch ON slot(branch_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}

// CurrentSchemaVersion reads the recorded schema version.
// PRE: InitDB has run
// POST: Returns the stored version
func CurrentSchemaVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	return v, err
}
