package refs

import (
	"sort"
	"strings"
)

// Container indexes labels or bibliography keys case-insensitively.
// Queries see the state of the last Organize call.
type Container struct {
	files  map[string][]Entry
	size   int
	sorted []Entry
	lower  []string
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{files: make(map[string][]Entry)}
}

// AddOrReplace sets the entries declared in file, replacing any previous
// list for that file. Every entry gets File set to file.
func (c *Container) AddOrReplace(file string, entries []Entry) {
	for i := range entries {
		entries[i].File = file
	}
	c.size += len(entries)
	if old, ok := c.files[file]; ok {
		c.size -= len(old)
	}
	c.files[file] = entries
}

// AddAux adds keys read from an .aux file. Keys that other files already
// provide in the current sorted snapshot are dropped.
func (c *Container) AddAux(file string, entries []Entry) {
	kept := entries[:0:0]
	for _, e := range entries {
		if !c.existsElsewhere(e.Key, file) {
			kept = append(kept, e)
		}
	}
	c.AddOrReplace(file, kept)
}

// UpdateRefSource replaces the entries of a file that is already known and
// reorganizes. It reports whether the file was known.
func (c *Container) UpdateRefSource(file string, entries []Entry) bool {
	if _, ok := c.files[file]; !ok {
		return false
	}
	c.AddOrReplace(file, entries)
	c.Organize()
	return true
}

// Remove drops the entries of file.
func (c *Container) Remove(file string) {
	if old, ok := c.files[file]; ok {
		c.size -= len(old)
		delete(c.files, file)
	}
}

// Organize rebuilds the sorted array from all per-file lists.
func (c *Container) Organize() {
	all := make([]Entry, 0, c.size)
	for _, file := range c.Files() {
		all = append(all, c.files[file]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return strings.ToLower(all[i].Key) < strings.ToLower(all[j].Key)
	})
	c.sorted = all
	c.lower = make([]string, len(all))
	for i, e := range all {
		c.lower[i] = strings.ToLower(e.Key)
	}
}

// Files returns the known file keys in sorted order.
func (c *Container) Files() []string {
	files := make([]string, 0, len(c.files))
	for f := range c.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Entries returns the entry list of file.
func (c *Container) Entries(file string) []Entry { return c.files[file] }

// Size returns the number of entries over all files.
func (c *Container) Size() int { return c.size }

// Sorted returns the sorted array built by the last Organize.
func (c *Container) Sorted() []Entry { return c.sorted }

// lowerBound returns the first index whose lowercased key is >= lk.
func (c *Container) lowerBound(lk string) int {
	return sort.SearchStrings(c.lower, lk)
}

func (c *Container) find(key string, accept func(Entry) bool) (Entry, bool) {
	lk := strings.ToLower(key)
	for i := c.lowerBound(lk); i < len(c.lower) && c.lower[i] == lk; i++ {
		if accept(c.sorted[i]) {
			return c.sorted[i], true
		}
	}
	return Entry{}, false
}

// Lookup returns the entry whose key is exactly key. Entries differing only
// in case are skipped.
func (c *Container) Lookup(key string) (Entry, bool) {
	return c.find(key, func(e Entry) bool { return e.Key == key })
}

// Exists reports whether an entry with exactly this key exists.
func (c *Container) Exists(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

func (c *Container) existsElsewhere(key, file string) bool {
	_, ok := c.find(key, func(e Entry) bool { return e.Key == key && e.File != file })
	return ok
}

// PrefixRange returns the half open range [lo, hi) of Sorted whose keys
// start with prefix, ignoring case. lo == hi when nothing matches.
func (c *Container) PrefixRange(prefix string) (lo, hi int) {
	return prefixRange(c.lower, strings.ToLower(prefix))
}

// Prefix returns the entries whose keys start with prefix.
func (c *Container) Prefix(prefix string) []Entry {
	lo, hi := c.PrefixRange(prefix)
	return c.sorted[lo:hi]
}

func prefixRange(keys []string, lp string) (lo, hi int) {
	lo = sort.SearchStrings(keys, lp)
	hi = sort.Search(len(keys), func(i int) bool {
		return keys[i] > lp && !strings.HasPrefix(keys[i], lp)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// UpdateBibs keeps the entries of the bibliography files still in newBibs,
// drops the rest and returns the files that have not been read yet.
func (c *Container) UpdateBibs(newBibs []string) []string {
	var toParse []string
	files := make(map[string][]Entry, len(newBibs))
	size := 0
	for _, bib := range newBibs {
		if entries, ok := c.files[bib]; ok {
			files[bib] = entries
			size += len(entries)
		} else {
			toParse = append(toParse, bib)
		}
	}
	c.files = files
	c.size = size
	return toParse
}

// CheckFreshness reports whether the container holds exactly the files in
// newBibs.
func (c *Container) CheckFreshness(newBibs []string) bool {
	if len(newBibs) != len(c.files) {
		return false
	}
	for _, bib := range newBibs {
		if _, ok := c.files[bib]; !ok {
			return false
		}
	}
	return true
}

// RemoveResolved returns the references whose keys do not exist.
func (c *Container) RemoveResolved(refs []Reference) []Reference {
	var missing []Reference
	for _, r := range refs {
		if !c.Exists(r.Key) {
			missing = append(missing, r)
		}
	}
	return missing
}
