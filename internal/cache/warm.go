package cache

import (
	"errors"

	"github.com/tliron/commonlog"

	"texlipse/internal/refs"
	"texlipse/internal/scanner"
)

var log = commonlog.GetLogger("texlipse.cache")

// Seed adds the cached symbols of every file that did not change since it
// was stored to idx, and returns the files that still have to be read.
// Bibliography files seeded this way are not read again by a project load.
func Seed(c Cache, idx *refs.Manager, files []scanner.File) []scanner.File {
	var stale []scanner.File
	fresh := make(map[string]Symbols)
	for _, f := range files {
		syms, err := c.Load(f.Path, f.ModTime)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStale) {
				log.Warningf("cache lookup of %s: %v", f.Path, err)
			}
			stale = append(stale, f)
			continue
		}
		fresh[f.Path] = syms
	}
	if len(fresh) == 0 {
		return stale
	}

	idx.Update(func(labels, bibs *refs.Container, commands *refs.CommandContainer) {
		for file, syms := range fresh {
			if len(syms.Labels) > 0 {
				labels.AddOrReplace(file, syms.Labels)
			}
			if len(syms.BibKeys) > 0 {
				bibs.AddOrReplace(file, syms.BibKeys)
			}
			if len(syms.Commands) > 0 {
				commands.AddOrReplace(file, syms.Commands)
			}
		}
	})
	log.Infof("seeded %d files from the cache, %d to read", len(fresh), len(stale))
	return stale
}

// Save stores what idx holds for each of files.
func Save(c Cache, idx *refs.Manager, files []scanner.File) error {
	batch := make([]Symbols, len(files))
	idx.View(func(labels, bibs *refs.Container, commands *refs.CommandContainer) {
		for i, f := range files {
			batch[i] = Symbols{
				Labels:   labels.Entries(f.Path),
				BibKeys:  bibs.Entries(f.Path),
				Commands: commands.Entries(f.Path),
			}
		}
	})

	var errs []error
	for i, f := range files {
		if err := c.Store(f.Path, f.ModTime, batch[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
