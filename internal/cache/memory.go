package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	modTime time.Time
	syms    Symbols
}

// memory is a Cache that lives as long as the process. It is used when the
// persistent cache is disabled.
type memory struct {
	mu    sync.RWMutex
	files map[string]memoryEntry
}

func NewMemory() Cache {
	return &memory{files: make(map[string]memoryEntry)}
}

func (m *memory) Store(file string, modTime time.Time, syms Symbols) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file] = memoryEntry{modTime: modTime, syms: syms}
	return nil
}

func (m *memory) Load(file string, modTime time.Time) (Symbols, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.files[file]
	switch {
	case !ok:
		return Symbols{}, fmt.Errorf("%w: %s", ErrNotFound, file)
	case !e.modTime.Equal(modTime):
		return Symbols{}, fmt.Errorf("%w: %s", ErrStale, file)
	}
	return e.syms, nil
}

func (m *memory) Forget(file string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, file)
	return nil
}

func (m *memory) Files() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := make([]string, 0, len(m.files))
	for f := range m.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files, nil
}

func (m *memory) Close() error { return nil }
