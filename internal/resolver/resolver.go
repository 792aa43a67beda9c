// Package resolver maps editor URIs and the file names used by \input,
// \include and \bibliography to project relative paths.
package resolver

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("texlipse.resolver")

var (
	ErrOutsideRoot = errors.New("resolver: file is outside the project root")
	ErrInvalidURI  = errors.New("resolver: invalid uri")
)

// File is a project file seen from the editor and from the project.
type File struct {
	URI          protocol.DocumentUri
	AbsolutePath string
	// RelativePath uses forward slashes and is the name the project and the
	// symbol index know the file by.
	RelativePath string
}

// Resolver resolves names against one project.
type Resolver struct {
	root   string
	main   string
	texExt string
	exists func(rel string) bool
}

// New returns a resolver for the project rooted at root whose main file is
// main, given relative to root.
func New(root, main string) *Resolver {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	r := &Resolver{root: filepath.Clean(abs), main: filepath.ToSlash(main), texExt: ".tex"}
	r.exists = func(rel string) bool {
		_, err := os.Stat(filepath.Join(r.root, filepath.FromSlash(rel)))
		return err == nil
	}
	return r
}

// SetLookup replaces the check used to decide whether a resolved project
// file exists.
func (r *Resolver) SetLookup(exists func(rel string) bool) { r.exists = exists }

// Root returns the absolute project root.
func (r *Resolver) Root() string { return r.root }

// Main returns the project relative name of the main file.
func (r *Resolver) Main() string { return r.main }

// Resolve accepts a file URI, an absolute path or a path relative to the
// project root.
func (r *Resolver) Resolve(base string) (File, error) {
	if strings.Contains(base, "://") {
		u, err := url.Parse(base)
		if err != nil {
			return File{}, fmt.Errorf("%w: %s: %v", ErrInvalidURI, base, err)
		}
		if u.Scheme != "file" {
			return File{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURI, u.Scheme)
		}
		return r.resolveAbsolute(filepath.FromSlash(u.Path))
	}
	if filepath.IsAbs(base) {
		return r.resolveAbsolute(base)
	}
	return r.resolveAbsolute(filepath.Join(r.root, filepath.FromSlash(base)))
}

func (r *Resolver) resolveAbsolute(absolutepath string) (File, error) {
	cleaned := filepath.Clean(absolutepath)
	rel, err := filepath.Rel(r.root, cleaned)
	if err != nil {
		return File{}, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return File{}, fmt.Errorf("%w: %s", ErrOutsideRoot, cleaned)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(cleaned)}
	return File{
		URI:          protocol.DocumentUri(u.String()),
		AbsolutePath: cleaned,
		RelativePath: filepath.ToSlash(rel),
	}, nil
}

// URI returns the file URI of a project relative name.
func (r *Resolver) URI(rel string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(r.root, filepath.FromSlash(rel)))}
	return protocol.DocumentUri(u.String())
}

// Include resolves the argument of \input or \include. Names are relative to
// the directory of the main file and get the .tex extension when they have
// none.
func (r *Resolver) Include(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return r.lookup(WithExtension(name, r.texExt))
}

// Bibliography resolves one bibliography file name, which already carries
// its extension.
func (r *Resolver) Bibliography(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return r.lookup(name)
}

func (r *Resolver) lookup(name string) (string, bool) {
	rel := path.Clean(path.Join(path.Dir(r.main), filepath.ToSlash(name)))
	if strings.HasPrefix(rel, "../") || rel == ".." {
		log.Debugf("not resolving %q: outside the project", name)
		return "", false
	}
	if !r.exists(rel) {
		log.Debugf("not resolving %q: %s does not exist", name, rel)
		return "", false
	}
	return rel, true
}

// WithExtension appends ext to name unless its last path element already
// has an extension.
func WithExtension(name, ext string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 || strings.LastIndexByte(name, '/') > dot {
		return name + ext
	}
	return name
}
