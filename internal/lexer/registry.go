package lexer

// Commands whose arguments the lexer captures into Argument and
// OptArgument tokens.
var argumentCommands = []string{
	"documentclass", "usepackage", "begin", "end",
	"part", "chapter", "section", "subsection", "subsubsection", "paragraph",
	"label", "input", "include",
	"newcommand", "renewcommand", "providecommand",
	"bibliography", "bibliographystyle", "addbibresource",
}

// RefCommands name a label in their argument.
var RefCommands = map[string]bool{
	"ref": true, "pageref": true, "eqref": true, "autoref": true, "cref": true, "Cref": true,
	"nameref": true, "vref": true,
}

// CiteCommands take a comma separated list of bibliography keys.
var CiteCommands = map[string]bool{
	"cite": true, "citep": true, "citet": true, "citeauthor": true, "citeyear": true,
	"nocite": true, "parencite": true, "textcite": true, "autocite": true, "footcite": true,
	"shortcite": true,
}

var definitionCommands = []string{"newcommand", "renewcommand", "providecommand"}

// DefaultVerbatim lists the environments whose content is never interpreted.
var DefaultVerbatim = []string{"verbatim", "verbatim*", "lstlisting", "Verbatim", "comment"}

// Registry is the set of commands the lexer knows about while scanning one
// file. The parser owns it and passes it into every Next call; commands it
// declares mid-file take effect on the following tokens.
type Registry struct {
	captures map[string]bool
	definers map[string]bool
	declared map[string]bool
	aliases  map[string]string
	verbatim map[string]bool
}

// NewRegistry returns a registry holding the structural commands. When no
// verbatim environments are given, DefaultVerbatim is used.
func NewRegistry(verbatimEnvs ...string) *Registry {
	if len(verbatimEnvs) == 0 {
		verbatimEnvs = DefaultVerbatim
	}
	r := &Registry{
		captures: make(map[string]bool, len(argumentCommands)),
		definers: make(map[string]bool, len(definitionCommands)),
		declared: make(map[string]bool),
		aliases:  make(map[string]string),
		verbatim: make(map[string]bool, len(verbatimEnvs)),
	}
	for _, name := range argumentCommands {
		r.captures[name] = true
	}
	for name := range RefCommands {
		r.captures[name] = true
	}
	for name := range CiteCommands {
		r.captures[name] = true
	}
	for _, name := range definitionCommands {
		r.definers[name] = true
	}
	for _, env := range verbatimEnvs {
		r.verbatim[env] = true
	}
	return r
}

// Captures reports whether arguments following \name are captured.
func (r *Registry) Captures(name string) bool {
	if r.captures[name] {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

// Defines reports whether \name defines a new command.
func (r *Registry) Defines(name string) bool { return r.definers[name] }

// Declare records a user defined command. Structural commands keep their
// meaning when redefined.
func (r *Registry) Declare(name string) {
	if r.captures[name] {
		return
	}
	r.declared[name] = true
}

// Declared reports whether name was declared in this file and is scanned as
// a literal word.
func (r *Registry) Declared(name string) bool {
	if _, ok := r.aliases[name]; ok {
		return false
	}
	return r.declared[name]
}

// Alias makes \name behave like the sectioning command \target.
func (r *Registry) Alias(name, target string) {
	if r.captures[name] {
		return
	}
	r.aliases[name] = target
}

// Sectioning returns the sectioning command \name stands for.
func (r *Registry) Sectioning(name string) (string, bool) {
	target, ok := r.aliases[name]
	return target, ok
}

// IsVerbatim reports whether env is a verbatim environment.
func (r *Registry) IsVerbatim(env string) bool { return r.verbatim[env] }
