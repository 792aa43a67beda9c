package database

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteDB struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	// foreign_keys is per connection, so it goes into the DSN.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

func (db *SQLiteDB) conn() (*sql.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	return db.db, nil
}

func (db *SQLiteDB) WithTx(fn func(Transaction) error) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteTx{tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	return nil
}

func (db *SQLiteDB) GetFile(path string) (*FileRecord, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	var record FileRecord
	err = conn.QueryRow(
		"SELECT path, last_modified FROM files WHERE path = ?",
		path,
	).Scan(&record.Path, &record.LastModified)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}

	return &record, nil
}

func (db *SQLiteDB) GetAllFiles() ([]FileRecord, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query("SELECT path, last_modified FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var record FileRecord
		if err := rows.Scan(&record.Path, &record.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file records: %w", err)
	}

	return records, nil
}

func (db *SQLiteDB) DeleteFile(path string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	result, err := conn.Exec("DELETE FROM files WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *SQLiteDB) GetSymbols(path string) ([]SymbolRecord, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
        SELECT file_path, kind, name, info, line, end_line, byte_offset, length, arguments, params, context
        FROM symbols
        WHERE file_path = ?
        ORDER BY seq
    `, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var records []SymbolRecord
	for rows.Next() {
		var r SymbolRecord
		if err := rows.Scan(&r.FilePath, &r.Kind, &r.Key, &r.Info, &r.Line, &r.EndLine,
			&r.Offset, &r.Length, &r.Arguments, &r.Params, &r.Context); err != nil {
			return nil, fmt.Errorf("failed to scan symbol record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol records: %w", err)
	}
	return records, nil
}

func (db *SQLiteDB) Clear() error {
	return db.WithTx(func(tx Transaction) error {
		return tx.(*SQLiteTx).clear()
	})
}

func (db *SQLiteDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.db.Close()
}
