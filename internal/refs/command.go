package refs

import (
	"sort"
	"strings"
)

// ParamKind is the shape of one command parameter.
type ParamKind int

const (
	Mandatory ParamKind = 1
	Braced    ParamKind = 2
	Optional  ParamKind = 3
)

// Context is the band a command is usable in.
type Context int

const (
	ContextNormal   Context = 1
	ContextPreamble Context = 2
	ContextMath     Context = 3
)

func (c Context) String() string {
	switch c {
	case ContextNormal:
		return "normal"
	case ContextPreamble:
		return "preamble"
	case ContextMath:
		return "math"
	}
	return "unknown"
}

// CommandEntry is a built-in or user defined command.
type CommandEntry struct {
	Key       string
	Info      string
	Arguments int
	Params    []ParamKind
	Context   Context
	Depends   string
	File      string
	Line      int
}

// Signature renders the command with one {} per argument.
func (c CommandEntry) Signature() string {
	return "\\" + c.Key + strings.Repeat("{}", c.Arguments)
}

// CommandContainer indexes commands by context band and then by lowercased
// name. Built-ins are always present.
type CommandContainer struct {
	builtIn []CommandEntry
	files   map[string][]CommandEntry
	size    int
	sorted  []CommandEntry
	lower   []string
	bands   [4]int
}

// NewCommandContainer returns a container seeded with the built-in catalog.
func NewCommandContainer() *CommandContainer {
	c := &CommandContainer{
		builtIn: BuiltIn(),
		files:   make(map[string][]CommandEntry),
	}
	c.Organize()
	return c
}

// AddOrReplace sets the commands defined in file.
func (c *CommandContainer) AddOrReplace(file string, cmds []CommandEntry) {
	for i := range cmds {
		cmds[i].File = file
	}
	c.size += len(cmds)
	if old, ok := c.files[file]; ok {
		c.size -= len(old)
	}
	c.files[file] = cmds
}

// Remove drops the commands of file.
func (c *CommandContainer) Remove(file string) {
	if old, ok := c.files[file]; ok {
		c.size -= len(old)
		delete(c.files, file)
	}
}

// Entries returns the commands defined in file.
func (c *CommandContainer) Entries(file string) []CommandEntry { return c.files[file] }

// Organize rebuilds the banded sorted array. Every user command is also
// placed in the math band.
func (c *CommandContainer) Organize() {
	all := make([]CommandEntry, 0, len(c.builtIn)+2*c.size)
	all = append(all, c.builtIn...)

	files := make([]string, 0, len(c.files))
	for f := range c.files {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, cmd := range c.files[f] {
			if cmd.Context == 0 {
				cmd.Context = ContextNormal
			}
			all = append(all, cmd)
			if cmd.Context != ContextMath {
				math := cmd
				math.Context = ContextMath
				all = append(all, math)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Context != all[j].Context {
			return all[i].Context < all[j].Context
		}
		return strings.ToLower(all[i].Key) < strings.ToLower(all[j].Key)
	})
	c.sorted = all
	c.lower = make([]string, len(all))
	for i, cmd := range all {
		c.lower[i] = strings.ToLower(cmd.Key)
	}
	for ctx := ContextNormal; ctx <= ContextMath; ctx++ {
		c.bands[ctx] = sort.Search(len(all), func(i int) bool { return all[i].Context > ctx })
	}
}

func (c *CommandContainer) band(ctx Context) (lo, hi int) {
	if ctx < ContextNormal || ctx > ContextMath {
		return 0, 0
	}
	return c.bands[ctx-1], c.bands[ctx]
}

// SortedCommands returns the slice of the sorted array for ctx.
func (c *CommandContainer) SortedCommands(ctx Context) []CommandEntry {
	lo, hi := c.band(ctx)
	return c.sorted[lo:hi]
}

// PrefixRange returns the range within SortedCommands(ctx) whose names start
// with prefix, ignoring case.
func (c *CommandContainer) PrefixRange(ctx Context, prefix string) (lo, hi int) {
	blo, bhi := c.band(ctx)
	return prefixRange(c.lower[blo:bhi], strings.ToLower(prefix))
}

// Lookup returns the command named exactly name in band ctx.
func (c *CommandContainer) Lookup(ctx Context, name string) (CommandEntry, bool) {
	blo, bhi := c.band(ctx)
	keys := c.lower[blo:bhi]
	ln := strings.ToLower(name)
	for i := sort.SearchStrings(keys, ln); i < len(keys) && keys[i] == ln; i++ {
		if cmd := c.sorted[blo+i]; cmd.Key == name {
			return cmd, true
		}
	}
	return CommandEntry{}, false
}
