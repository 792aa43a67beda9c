package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var ErrNotLoaded = errors.New("manager: document not loaded")

type document struct {
	text    string
	version protocol.Integer
}

// DocumentManager holds the text of the documents open in the editor, keyed
// by project relative name. Files that are not open are read from disk.
type DocumentManager struct {
	root string

	mu   sync.RWMutex
	docs map[string]*document
}

// NewDocumentManager creates a manager reading closed files below root.
func NewDocumentManager(root string) *DocumentManager {
	return &DocumentManager{
		root: root,
		docs: make(map[string]*document),
	}
}

// Open stores the text of a document the editor opened.
func (dm *DocumentManager) Open(name, text string, version protocol.Integer) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs[name] = &document{text: text, version: version}
}

// GetDocument returns the current text of an open document.
func (dm *DocumentManager) GetDocument(name string) (string, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	doc, ok := dm.docs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	return doc.text, nil
}

// Version returns the editor version of an open document.
func (dm *DocumentManager) Version(name string) (protocol.Integer, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if doc, ok := dm.docs[name]; ok {
		return doc.version, true
	}
	return 0, false
}

// Text implements project.Source: the open document, or else the file on
// disk.
func (dm *DocumentManager) Text(name string) (string, error) {
	if text, err := dm.GetDocument(name); err == nil {
		return text, nil
	}
	data, err := os.ReadFile(filepath.Join(dm.root, filepath.FromSlash(name)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ApplyChanges applies the content changes of one didChange notification in
// order and returns the new text. Changes are either
// protocol.TextDocumentContentChangeEvent or
// protocol.TextDocumentContentChangeEventWhole.
func (dm *DocumentManager) ApplyChanges(name string, version protocol.Integer, changes []any) (string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}

	text := doc.text
	for _, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			text = ApplyTextEdit(c, text)
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		default:
			return "", fmt.Errorf("unsupported content change %T", change)
		}
	}
	doc.text = text
	doc.version = version
	return text, nil
}

// Release forgets an open document.
func (dm *DocumentManager) Release(name string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.docs, name)
}

// Names lists the open documents.
func (dm *DocumentManager) Names() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	names := make([]string, 0, len(dm.docs))
	for name := range dm.docs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
