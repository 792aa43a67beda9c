package refs

import "sync"

// Manager answers completion queries over the three indexes. Mutations go
// through Update, which holds the write lock across the whole batch and the
// following Organize.
type Manager struct {
	mu       sync.RWMutex
	labels   *Container
	bibs     *Container
	commands *CommandContainer
}

// NewManager returns a manager with empty label and bibliography indexes and
// the built-in commands.
func NewManager() *Manager {
	return &Manager{
		labels:   NewContainer(),
		bibs:     NewContainer(),
		commands: NewCommandContainer(),
	}
}

// Update runs fn with exclusive access to the indexes and organizes all of
// them afterwards.
func (m *Manager) Update(fn func(labels, bibs *Container, commands *CommandContainer)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.labels, m.bibs, m.commands)
	m.labels.Organize()
	m.bibs.Organize()
	m.commands.Organize()
}

// View runs fn with shared access to the organized indexes.
func (m *Manager) View(fn func(labels, bibs *Container, commands *CommandContainer)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.labels, m.bibs, m.commands)
}

func complete(c *Container, prefix string) []Entry {
	if prefix == "" {
		return c.Sorted()
	}
	lo, hi := c.PrefixRange(prefix)
	if lo == hi {
		return nil
	}
	return c.Sorted()[lo:hi]
}

// Labels returns the labels starting with prefix, all labels for an empty
// prefix and nil when nothing matches.
func (m *Manager) Labels(prefix string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return complete(m.labels, prefix)
}

// BibKeys returns the bibliography keys starting with prefix.
func (m *Manager) BibKeys(prefix string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return complete(m.bibs, prefix)
}

// Commands returns the commands of band ctx starting with prefix.
func (m *Manager) Commands(ctx Context, prefix string) []CommandEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	band := m.commands.SortedCommands(ctx)
	if prefix == "" {
		return band
	}
	lo, hi := m.commands.PrefixRange(ctx, prefix)
	if lo == hi {
		return nil
	}
	return band[lo:hi]
}

// Label returns the label named exactly key.
func (m *Manager) Label(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.labels.Lookup(key)
}

// BibKey returns the bibliography entry named exactly key.
func (m *Manager) BibKey(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bibs.Lookup(key)
}
