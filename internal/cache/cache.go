// Package cache keeps the symbols declared in project files between runs,
// so a warm start can fill the reference index without reading every file.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"texlipse/internal/cache/database"
	"texlipse/internal/refs"
)

var (
	ErrNotFound = errors.New("cache: file not cached")
	// ErrStale means the file changed after its symbols were cached.
	ErrStale = errors.New("cache: file changed")
)

// Symbols are the labels, bibliography keys and commands one file declares.
type Symbols struct {
	Labels   []refs.Entry
	BibKeys  []refs.Entry
	Commands []refs.CommandEntry
}

func (s Symbols) Len() int { return len(s.Labels) + len(s.BibKeys) + len(s.Commands) }

type Cache interface {
	// Store records the symbols of file as of modTime.
	Store(file string, modTime time.Time, syms Symbols) error
	// Load returns the symbols of file if they were stored for modTime.
	Load(file string, modTime time.Time) (Symbols, error)
	Forget(file string) error
	Files() ([]string, error)
	Close() error
}

// StateDir returns the per-user directory cache databases live in, creating
// it if needed.
func StateDir(appName string) (string, error) {
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		xdgStateHome = filepath.Join(homeDir, ".local", "state")
	}

	appStateDir := filepath.Join(xdgStateHome, appName)
	if err := os.MkdirAll(appStateDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return appStateDir, nil
}

// Open returns the sqlite cache for the project at root, stored in the
// state directory.
func Open(root string) (Cache, error) {
	dir, err := StateDir("texlipse")
	if err != nil {
		return nil, err
	}
	return NewPersistent(filepath.Join(dir, dbName(root)))
}

func toRecords(file string, syms Symbols) []database.SymbolRecord {
	out := make([]database.SymbolRecord, 0, syms.Len())
	entry := func(kind database.SymbolKind, e refs.Entry) database.SymbolRecord {
		return database.SymbolRecord{
			FilePath: file,
			Kind:     kind,
			Key:      e.Key,
			Info:     e.Info,
			Line:     e.Line,
			EndLine:  e.EndLine,
			Offset:   e.Offset,
			Length:   e.Length,
		}
	}
	for _, e := range syms.Labels {
		out = append(out, entry(database.KindLabel, e))
	}
	for _, e := range syms.BibKeys {
		out = append(out, entry(database.KindBibKey, e))
	}
	for _, c := range syms.Commands {
		params := make([]byte, len(c.Params))
		for i, p := range c.Params {
			params[i] = byte('0' + p)
		}
		out = append(out, database.SymbolRecord{
			FilePath:  file,
			Kind:      database.KindCommand,
			Key:       c.Key,
			Info:      c.Info,
			Line:      c.Line,
			Arguments: c.Arguments,
			Params:    string(params),
			Context:   int(c.Context),
		})
	}
	return out
}

func fromRecords(records []database.SymbolRecord) Symbols {
	var syms Symbols
	for _, r := range records {
		switch r.Kind {
		case database.KindLabel, database.KindBibKey:
			e := refs.Entry{
				Key:     r.Key,
				Info:    r.Info,
				File:    r.FilePath,
				Line:    r.Line,
				EndLine: r.EndLine,
				Offset:  r.Offset,
				Length:  r.Length,
			}
			if r.Kind == database.KindLabel {
				syms.Labels = append(syms.Labels, e)
			} else {
				syms.BibKeys = append(syms.BibKeys, e)
			}
		case database.KindCommand:
			var params []refs.ParamKind
			for _, p := range r.Params {
				params = append(params, refs.ParamKind(p-'0'))
			}
			syms.Commands = append(syms.Commands, refs.CommandEntry{
				Key:       r.Key,
				Info:      r.Info,
				Arguments: r.Arguments,
				Params:    params,
				Context:   refs.Context(r.Context),
				File:      r.FilePath,
				Line:      r.Line,
			})
		}
	}
	return syms
}
