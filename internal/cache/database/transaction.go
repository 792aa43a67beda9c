package database

import (
	"database/sql"
	"fmt"
)

type SQLiteTx struct {
	tx *sql.Tx
}

func (t *SQLiteTx) UpsertFile(file *FileRecord) error {
	_, err := t.tx.Exec(`
        INSERT INTO files (path, last_modified)
        VALUES (?, ?)
        ON CONFLICT(path) DO UPDATE SET
            last_modified = excluded.last_modified
    `, file.Path, file.LastModified)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

// ReplaceSymbols swaps all symbols of path for the given ones. The file
// record must exist.
func (t *SQLiteTx) ReplaceSymbols(path string, symbols []SymbolRecord) error {
	if _, err := t.tx.Exec("DELETE FROM symbols WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("failed to delete symbols: %w", err)
	}

	stmt, err := t.tx.Prepare(`
        INSERT INTO symbols (file_path, seq, kind, name, info, line, end_line, byte_offset, length, arguments, params, context)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, s := range symbols {
		if _, err := stmt.Exec(path, i, s.Kind, s.Key, s.Info, s.Line, s.EndLine,
			s.Offset, s.Length, s.Arguments, s.Params, s.Context); err != nil {
			return fmt.Errorf("failed to insert symbol %q: %w", s.Key, err)
		}
	}
	return nil
}

func (t *SQLiteTx) clear() error {
	for _, table := range []string{"symbols", "files"} {
		if _, err := t.tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
