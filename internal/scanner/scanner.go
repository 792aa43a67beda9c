// scanner is used to scan a project directory for LaTeX files.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("texlipse.scanner")

// Classifier sorts files by name. config.Config implements it.
type Classifier interface {
	IsSource(name string) bool
	IsBibliography(name string) bool
	IsAux(name string) bool
}

type File struct {
	// Path is relative to the scanned root, with forward slashes.
	Path    string
	ModTime time.Time
	Size    int64
}

type Inventory struct {
	Sources        []File
	Bibliographies []File
	Aux            []File
}

// Len is the number of files in the inventory.
func (inv Inventory) Len() int {
	return len(inv.Sources) + len(inv.Bibliographies) + len(inv.Aux)
}

// SkipDir reports whether a directory is left out: hidden directories and
// the build output of common LaTeX tool chains.
func SkipDir(name string) bool {
	base := filepath.Base(name)
	if base == "." {
		return false
	}
	return strings.HasPrefix(base, ".") || base == "_minted" || base == "node_modules"
}

func walk(ctx context.Context, root string, fn func(rel string, d fs.DirEntry) error) error {
	log.Debugf("starting WalkDir at %q", root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("walk error: %v", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && SkipDir(path) {
				log.Debugf("skipping %q", path)
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), d)
	})
}

// Walk lists the files below root that c recognizes.
func Walk(ctx context.Context, root string, c Classifier) (Inventory, error) {
	var inv Inventory
	err := walk(ctx, root, func(rel string, d fs.DirEntry) error {
		var list *[]File
		switch {
		case c.IsSource(rel):
			list = &inv.Sources
		case c.IsBibliography(rel):
			list = &inv.Bibliographies
		case c.IsAux(rel):
			list = &inv.Aux
		default:
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		*list = append(*list, File{Path: rel, ModTime: info.ModTime(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return Inventory{}, err
	}
	log.Infof("found %d files below %s", inv.Len(), root)
	return inv, nil
}

// Scan walks the entire subtree under root. Hidden directories are skipped
// entirely. For each remaining file, the skip predicate is applied, and if
// that returns false the file is read and callback(relPath, contents) is
// invoked on a single worker goroutine. Scan returns once all callbacks have
// completed.
func Scan(
	ctx context.Context,
	root string,
	skip func(relPath string, info fs.FileInfo) bool,
	callback func(relPath string, document []byte),
) error {
	fileCh := make(chan string, 100)
	var wg sync.WaitGroup

	// worker goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		for rel := range fileCh {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				log.Warningf("read error: %s: %v", rel, err)
				continue
			}
			callback(rel, data)
		}
	}()

	err := walk(ctx, root, func(rel string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if skip(rel, info) {
			return nil
		}
		// enqueue for reading
		fileCh <- rel
		return nil
	})

	// no more files to send
	close(fileCh)
	// wait for the worker to finish consuming and calling back
	wg.Wait()
	return err
}

// Stat describes the file rel below root.
func Stat(root, rel string) (File, error) {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return File{}, err
	}
	return File{Path: rel, ModTime: info.ModTime(), Size: info.Size()}, nil
}
