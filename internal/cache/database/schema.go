package database

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

func initSchema(db *sql.DB) error {
	// Check schema version
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	// Create or update schema
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Tables of an older layout only hold derived data.
	if version != 0 {
		for _, table := range []string{"symbols", "files"} {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return fmt.Errorf("failed to drop %s: %w", table, err)
			}
		}
	}

	if err := createTables(tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	// Update schema version
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}

func createTables(tx *sql.Tx) error {
	queries := []string{
		// One row per project file whose symbols are cached
		// - path: project relative name
		// - last_modified: modification time (unix nanoseconds) the symbols were read at
		`CREATE TABLE IF NOT EXISTS files (
            path TEXT PRIMARY KEY,
            last_modified INTEGER NOT NULL
        )`,

		// Labels, bibliography keys and commands declared in a file, in
		// declaration order. Removed with their file.
		`CREATE TABLE IF NOT EXISTS symbols (
            file_path TEXT NOT NULL,
            seq INTEGER NOT NULL,
            kind TEXT NOT NULL,
            name TEXT NOT NULL,
            info TEXT NOT NULL DEFAULT '',
            line INTEGER NOT NULL DEFAULT 0,
            end_line INTEGER NOT NULL DEFAULT 0,
            byte_offset INTEGER NOT NULL DEFAULT 0,
            length INTEGER NOT NULL DEFAULT 0,
            arguments INTEGER NOT NULL DEFAULT 0,
            params TEXT NOT NULL DEFAULT '',
            context INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY (file_path) REFERENCES files(path) ON DELETE CASCADE,
            PRIMARY KEY (file_path, seq)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_symbols_key
            ON symbols(kind, name)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}

	return nil
}
