package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"texlipse/internal/cache/database"
)

type persistent struct {
	db database.Database
}

// NewPersistent opens (or creates) the sqlite cache at dbPath.
func NewPersistent(dbPath string) (Cache, error) {
	db, err := database.NewSQLiteDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &persistent{db: db}, nil
}

// dbName derives a database file name from the project root.
func dbName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Base(abs) + "-" + hex.EncodeToString(sum[:8]) + ".db"
}

func (p *persistent) Store(file string, modTime time.Time, syms Symbols) error {
	return p.db.WithTx(func(tx database.Transaction) error {
		if err := tx.UpsertFile(&database.FileRecord{Path: file, LastModified: modTime.UnixNano()}); err != nil {
			return err
		}
		return tx.ReplaceSymbols(file, toRecords(file, syms))
	})
}

func (p *persistent) Load(file string, modTime time.Time) (Symbols, error) {
	rec, err := p.db.GetFile(file)
	if errors.Is(err, database.ErrNotFound) {
		return Symbols{}, fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	if err != nil {
		return Symbols{}, err
	}
	if rec.LastModified != modTime.UnixNano() {
		return Symbols{}, fmt.Errorf("%w: %s", ErrStale, file)
	}
	records, err := p.db.GetSymbols(file)
	if err != nil {
		return Symbols{}, err
	}
	return fromRecords(records), nil
}

func (p *persistent) Forget(file string) error {
	err := p.db.DeleteFile(file)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}

func (p *persistent) Files() ([]string, error) {
	records, err := p.db.GetAllFiles()
	if err != nil {
		return nil, err
	}
	files := make([]string, len(records))
	for i, r := range records {
		files[i] = r.Path
	}
	return files, nil
}

func (p *persistent) Close() error { return p.db.Close() }
