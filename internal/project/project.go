// Package project keeps the merged outline and the symbol index of a LaTeX
// project: a main file and everything it includes.
//
// Loading parses all files in parallel and then merges their outlines on a
// single goroutine. Updating one file reparses only that file and splices
// its nodes into a copy of the current tree when it can, falling back to a
// merge from the cached per-file results otherwise. Either way the previous
// snapshot stays valid until the new one is committed.
package project

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"texlipse/internal/outline"
	"texlipse/internal/parser"
	"texlipse/internal/refs"
)

var log = commonlog.GetLogger("texlipse.project")

var (
	ErrNoMainFile      = errors.New("project: main file not found")
	ErrCircularInclude = errors.New("project: circular include")
	ErrNotLoaded       = errors.New("project: not loaded")
)

// Source supplies the text of a project file by its project relative name.
// It must be safe for concurrent use.
type Source interface {
	Text(name string) (string, error)
}

// Resolver maps the names used by \input, \include and \bibliography to
// project files.
type Resolver interface {
	Include(name string) (string, bool)
	Bibliography(name string) (string, bool)
}

// Options configure a Project.
type Options struct {
	// Main is the project relative name of the main file.
	Main string
	// AuxExtension names the LaTeX auxiliary file next to Main, which
	// supplies extra bibliography keys. Empty disables it.
	AuxExtension  string
	CheckSections bool
	Verbatim      []string
}

// Snapshot is the outcome of one completed merge. It is not modified after
// it has been returned.
type Snapshot struct {
	Tree *outline.Tree
	// Top is the virtual "Entire document" node above everything else.
	Top     outline.NodeID
	Outline outline.Input
	// Files are the members of the merged tree in inclusion order.
	Files []string
	// Results holds the parse used for every known file.
	Results map[string]*parser.Result
	// Diagnostics per file: parser messages, include problems and
	// unresolved references.
	Diagnostics map[string][]parser.Message
	// Problems are the include failures behind some of the diagnostics.
	Problems []error
	// Changed lists the files whose new parse was accepted.
	Changed []string

	includes map[string][]parser.Message
}

// Contains reports whether file is part of the merged tree.
func (s *Snapshot) Contains(file string) bool { return slices.Contains(s.Files, file) }

// Project owns the per-file parse results, the merged tree and the index.
// Load, Update and ReloadBibliography are serialized; Snapshot and Index
// may be used concurrently with them.
type Project struct {
	opts  Options
	src   Source
	res   Resolver
	index *refs.Manager

	mu      sync.Mutex
	results map[string]*parser.Result
	failed  map[string]*parser.Result
	anchors map[string]Anchor
	snap    atomic.Pointer[Snapshot]
}

// New returns a project that has not been loaded yet.
func New(src Source, res Resolver, opts Options) *Project {
	return &Project{
		opts:    opts,
		src:     src,
		res:     res,
		index:   refs.NewManager(),
		results: make(map[string]*parser.Result),
		failed:  make(map[string]*parser.Result),
		anchors: make(map[string]Anchor),
	}
}

// Index returns the symbol index. It is updated in place by every commit.
func (p *Project) Index() *refs.Manager { return p.index }

// Snapshot returns the last committed snapshot, or nil before Load.
func (p *Project) Snapshot() *Snapshot { return p.snap.Load() }

func (p *Project) parse(name, text string) *parser.Result {
	return parser.Parse(text, parser.Options{
		File:          name,
		CheckSections: p.opts.CheckSections,
		Verbatim:      p.opts.Verbatim,
	})
}

// pending collects the changes of one operation until it commits.
type pending struct {
	results  map[string]*parser.Result
	failed   map[string]*parser.Result
	readErrs map[string]error
	changed  []string
	removed  []string
}

func (p *Project) begin() *pending {
	return &pending{
		results:  maps.Clone(p.results),
		failed:   maps.Clone(p.failed),
		readErrs: make(map[string]error),
	}
}

// accept records a new parse of name. A fatal parse does not replace a
// good one; it is only remembered for its diagnostics.
func (pd *pending) accept(name string, res *parser.Result) bool {
	if old, ok := pd.results[name]; ok && res.Fatal && !old.Fatal {
		pd.failed[name] = res
		return false
	}
	delete(pd.failed, name)
	pd.results[name] = res
	pd.changed = append(pd.changed, name)
	return true
}

func (pd *pending) drop(name string, err error) {
	pd.readErrs[name] = err
	if _, ok := pd.results[name]; ok {
		delete(pd.results, name)
		delete(pd.failed, name)
		pd.removed = append(pd.removed, name)
	}
}

// Load parses the main file and, level by level, every file it includes,
// then merges their outlines. Files parsed earlier are parsed again.
func (p *Project) Load(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pd := p.begin()
	if err := p.parseAll(ctx, pd, false); err != nil {
		return nil, err
	}
	b, err := newMerge(p.res, pd.results, pd.readErrs).run(p.opts.Main)
	if err != nil {
		return nil, err
	}
	return p.commit(ctx, pd, b)
}

// parseAll walks the include graph breadth first from the main file. The
// files of one level are parsed concurrently. With reuse set, files that
// already have a result are not parsed again.
func (p *Project) parseAll(ctx context.Context, pd *pending, reuse bool) error {
	seen := map[string]bool{p.opts.Main: true}
	level := []string{p.opts.Main}
	for len(level) > 0 {
		var todo []string
		for _, name := range level {
			if _, ok := pd.results[name]; !ok || !reuse {
				todo = append(todo, name)
			}
		}

		parsed := make([]*parser.Result, len(todo))
		readErrs := make([]error, len(todo))
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range todo {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				text, err := p.src.Text(name)
				if err != nil {
					readErrs[i] = err
					return nil
				}
				parsed[i] = p.parse(name, text)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, name := range todo {
			if err := readErrs[i]; err != nil {
				if name == p.opts.Main {
					return fmt.Errorf("%w: %s: %v", ErrNoMainFile, name, err)
				}
				log.Warningf("could not read %s: %v", name, err)
				pd.drop(name, err)
				continue
			}
			pd.accept(name, parsed[i])
		}

		var next []string
		for _, name := range level {
			res := pd.results[name]
			if res == nil {
				continue
			}
			for _, in := range res.Inputs {
				if file, ok := p.res.Include(in); ok && !seen[file] {
					seen[file] = true
					next = append(next, file)
				}
			}
		}
		level = next
	}
	return nil
}

// Update reparses name with text and merges the result. The file does not
// have to belong to the include tree; its symbols are indexed either way.
// A fatal parse leaves the file's previous outline and symbols in place and
// only replaces its diagnostics. When ctx is done before the commit, the
// previous snapshot and index are left untouched.
func (p *Project) Update(ctx context.Context, name, text string) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := p.parse(name, text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pd := p.begin()
	old := pd.results[name]
	accepted := pd.accept(name, res)

	prev := p.snap.Load()
	switch {
	case prev == nil:
	case !accepted:
		log.Infof("%s has fatal errors, keeping its last good outline", name)
		return p.commit(ctx, pd, p.current(prev))
	case !prev.Contains(name) && !p.wanted(pd, name):
		return p.commit(ctx, pd, p.current(prev))
	default:
		if tree, ok := p.splice(prev, name, old, res); ok {
			log.Debugf("spliced %s in place", name)
			b := p.current(prev)
			b.tree = tree
			return p.commit(ctx, pd, b)
		}
	}

	log.Debugf("merging the project again after a change to %s", name)
	if err := p.parseAll(ctx, pd, true); err != nil {
		return nil, err
	}
	b, err := newMerge(p.res, pd.results, pd.readErrs).run(p.opts.Main)
	if err != nil {
		return nil, err
	}
	return p.commit(ctx, pd, b)
}

// wanted reports whether some known file includes name.
func (p *Project) wanted(pd *pending, name string) bool {
	for _, res := range pd.results {
		for _, in := range res.Inputs {
			if file, ok := p.res.Include(in); ok && file == name {
				return true
			}
		}
	}
	return false
}

// current wraps the tree of prev so it can be committed again.
func (p *Project) current(prev *Snapshot) *build {
	return &build{
		tree:     prev.Tree,
		top:      prev.Top,
		files:    prev.Files,
		anchors:  p.anchors,
		includes: prev.includes,
		problems: prev.Problems,
	}
}

// ReloadBibliography reads a bibliography or .aux file of the project again
// after it changed on disk. Files the index does not know are ignored.
func (p *Project) ReloadBibliography(ctx context.Context, name string) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.snap.Load()
	if prev == nil {
		return nil, ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := p.src.Text(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return p.commit(ctx, p.begin(), p.current(prev), bibText{name: name, text: text})
}

// commit updates the index, computes diagnostics and publishes the new
// snapshot. It is the last point at which ctx is honoured.
func (p *Project) commit(ctx context.Context, pd *pending, b *build, reread ...bibText) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.updateIndex(pd, b.files, reread)

	in := outline.NewInput(b.tree)
	in.Roots = b.tree.Children(b.top)
	snap := &Snapshot{
		Tree:     b.tree,
		Top:      b.top,
		Outline:  in,
		Files:    b.files,
		Results:  pd.results,
		Problems: b.problems,
		Changed:  pd.changed,
		includes: b.includes,
	}
	snap.Diagnostics = p.diagnostics(pd, b.includes)

	p.results = pd.results
	p.failed = pd.failed
	p.anchors = b.anchors
	p.snap.Store(snap)
	log.Debugf("committed %d files, %d changed", len(snap.Files), len(snap.Changed))
	return snap, nil
}

// auxName returns the auxiliary file next to the main file.
func (p *Project) auxName() string {
	if p.opts.AuxExtension == "" {
		return ""
	}
	main := p.opts.Main
	if i := strings.LastIndexByte(main, '.'); i > strings.LastIndexByte(main, '/') {
		main = main[:i]
	}
	return main + p.opts.AuxExtension
}
