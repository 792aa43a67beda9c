// Package parser builds the outline tree and symbol lists of one LaTeX file
// in a single pass over the token stream.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"texlipse/internal/lexer"
	"texlipse/internal/outline"
	"texlipse/internal/refs"
	"texlipse/internal/token"
)

// Options tunes a parse.
type Options struct {
	// File is recorded on every node and entry.
	File string
	// CheckSections enables the missing parent warnings for subsection,
	// subsubsection and paragraph.
	CheckSections bool
	// Verbatim overrides lexer.DefaultVerbatim.
	Verbatim []string
}

type state int

const (
	stateNormal state = iota
	stateAwaitArg
	stateAwaitArg2
)

// Checked in this order against the body of a new command.
var sectioningOrder = []string{"part", "chapter", "section", "subsection", "subsubsection", "paragraph"}

type parser struct {
	opts  Options
	src   string
	lines []string
	reg   *lexer.Registry
	lex   *lexer.Lexer
	res   *Result
	tree  *outline.Tree

	blocks []outline.NodeID
	envs   []outline.NodeID
	braces []token.Token

	state       state
	cmd         token.Token
	cmdName     string
	accumulated int
	packageOpts string

	def      refs.CommandEntry
	defOpts  int
	lastLine int
	aborted  bool
	ended    bool
	document bool
}

// Parse parses src. It never fails; problems are reported as messages on
// the result.
func Parse(src string, opts Options) *Result {
	p := &parser{
		opts:  opts,
		src:   src,
		lines: strings.Split(src, "\n"),
		reg:   lexer.NewRegistry(opts.Verbatim...),
		lex:   lexer.New(src),
		tree:  outline.New(),
	}
	p.res = &Result{File: opts.File, Tree: p.tree}
	p.run()
	p.finish()
	return p.res
}

func (p *parser) run() {
	for !p.aborted && !p.ended {
		t, err := p.lex.Next(p.reg)
		if err != nil {
			var lerr *lexer.Error
			if errors.As(err, &lerr) {
				p.fatal(lerr.Line, lerr.Pos, 1, lerr.Msg)
			} else {
				p.fatal(p.lastLine, 0, 0, err.Error())
			}
			return
		}
		p.lastLine = t.Line
		if t.Kind == token.EOF {
			return
		}
		switch p.state {
		case stateAwaitArg:
			p.awaitArg(t)
		case stateAwaitArg2:
			p.awaitArg2(t)
		default:
			p.normal(t)
		}
	}
}

func (p *parser) message(line, pos, length int, sev Severity, format string, args ...any) {
	p.res.Messages = append(p.res.Messages, Message{
		Line:     line,
		Pos:      pos,
		Length:   length,
		Msg:      fmt.Sprintf(format, args...),
		Severity: sev,
	})
}

// fatal records an error and stops structural inference.
func (p *parser) fatal(line, pos, length int, format string, args ...any) {
	p.message(line, pos, length, SeverityError, format, args...)
	p.res.Fatal = true
	p.aborted = true
}

// cmdLength is the length of the pending command up to and including t.
func (p *parser) cmdLength(t token.Token) int {
	return len(p.cmd.Text) + p.accumulated + len(t.Text)
}

// current returns the innermost open node, or NoNode at top level.
func (p *parser) current() outline.NodeID {
	cur := outline.NoNode
	if n := len(p.blocks); n > 0 {
		cur = p.blocks[n-1]
	}
	if n := len(p.envs); n > 0 && p.envs[n-1] > cur {
		cur = p.envs[n-1]
	}
	return cur
}

func (p *parser) normal(t token.Token) {
	switch t.Kind {
	case token.CommandWord:
		name := t.Name()
		if target, ok := p.reg.Sectioning(name); ok {
			name = target
		}
		switch {
		case name == "printindex":
			p.res.Index = true
		case p.reg.Captures(name):
			p.state = stateAwaitArg
			p.cmd = t
			p.cmdName = name
			p.accumulated = 0
			p.packageOpts = ""
		}
	case token.LBrace:
		p.braces = append(p.braces, t)
	case token.RBrace:
		if n := len(p.braces); n > 0 {
			p.braces = p.braces[:n-1]
		} else {
			p.message(t.Line, t.Pos, 1, SeverityError, "Unbalanced braces: missing {")
		}
	case token.Task:
		p.task(t)
	case token.Verbatim:
		p.verbatim(t)
	}
}

func (p *parser) reset() {
	p.state = stateNormal
	p.accumulated = 0
}

func (p *parser) awaitArg(t token.Token) {
	switch t.Kind {
	case token.Argument:
		p.reset()
		p.argument(t)
	case token.CommandWord, token.CommandSymbol:
		if p.reg.Defines(p.cmdName) {
			// \newcommand\name{...}
			p.reset()
			p.beginDefinition(t.Text, t.Line)
			return
		}
		p.missingArgument(t)
	case token.OptArgument:
		if p.cmdName == "usepackage" {
			p.packageOpts = t.Text
		}
		p.accumulated += len(t.Text)
	case token.Whitespace, token.Star, token.Comment:
		p.accumulated += len(t.Text)
	case token.Task:
		p.task(t)
		p.accumulated += len(t.Text)
	default:
		p.missingArgument(t)
	}
}

// missingArgument warns about the pending command and handles t as if no
// command had been pending.
func (p *parser) missingArgument(t token.Token) {
	p.message(p.cmd.Line, p.cmd.Pos, p.cmdLength(t), SeverityWarning, "No argument following %s", p.cmd.Text)
	p.reset()
	p.normal(t)
}

func (p *parser) argument(t token.Token) {
	name := p.cmdName
	switch {
	case name == "label":
		p.label(t)
	case lexer.RefCommands[name]:
		p.res.Refs = append(p.res.Refs, refs.Reference{Key: t.Text, Line: t.Line, Pos: t.Pos, Length: len(t.Text)})
	case lexer.CiteCommands[name]:
		p.cite(t)
	case name == "begin":
		p.begin(t)
	case name == "end":
		p.end(t)
	case name == "input" || name == "include":
		p.input(t)
	case p.reg.Defines(name):
		p.beginDefinition(t.Text, p.cmd.Line)
	case name == "documentclass":
		p.res.DocumentClass = strings.TrimSpace(t.Text)
	case name == "usepackage":
		p.usepackage(t)
	case name == "bibliography":
		p.bibliography(t)
	case name == "addbibresource":
		p.res.Bibs = append(p.res.Bibs, strings.TrimSpace(t.Text))
	case name == "bibliographystyle":
		p.res.BibStyle = strings.TrimSpace(t.Text)
		p.closeToEnvironment(p.cmd.Line)
	default:
		if typ, ok := outline.SectioningType(name); ok {
			p.section(typ, t)
		}
	}
}

func (p *parser) label(t token.Token) {
	line := p.cmd.Line
	e := refs.Entry{Key: t.Text, File: p.opts.File, Line: line, EndLine: line}
	e.SetLabelInfo(p.lines)
	p.res.Labels = append(p.res.Labels, e)

	id := p.tree.Add(outline.Node{Name: t.Text, Type: outline.TypeLabel, BeginLine: line, EndLine: line})
	p.tree.Append(p.current(), id)
}

func (p *parser) cite(t token.Token) {
	if strings.TrimSpace(t.Text) == "*" {
		return
	}
	for _, key := range strings.Split(strings.Join(strings.Fields(t.Text), ""), ",") {
		if key == "" || key == "*" {
			continue
		}
		p.res.Cites = append(p.res.Cites, refs.Reference{Key: key, Line: t.Line, Pos: t.Pos, Length: len(t.Text)})
	}
}

func (p *parser) input(t token.Token) {
	name := strings.TrimSpace(t.Text)
	p.res.Inputs = append(p.res.Inputs, name)
	line := p.cmd.Line
	id := p.tree.Add(outline.Node{Name: name, Type: outline.TypeInput, BeginLine: line, EndLine: line})
	p.tree.Append(p.current(), id)
}

func (p *parser) usepackage(t token.Token) {
	for _, pkg := range strings.Split(t.Text, ",") {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}
		p.res.Packages = append(p.res.Packages, pkg)
		if pkg == "biblatex" {
			p.res.Biblatex = true
			if backend := biblatexBackend(p.packageOpts); backend != "" {
				p.res.BiblatexBackend = backend
			}
		}
	}
}

// biblatexBackend returns the value of backend= in a package option list.
func biblatexBackend(opts string) string {
	for _, opt := range strings.Split(opts, ",") {
		key, value, ok := strings.Cut(opt, "=")
		if ok && strings.TrimSpace(key) == "backend" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (p *parser) bibliography(t token.Token) {
	if p.res.Biblatex {
		p.res.Bibs = append(p.res.Bibs, strings.TrimSpace(t.Text))
	} else {
		for _, bib := range strings.Split(t.Text, ",") {
			bib = strings.TrimSpace(bib)
			if bib == "" {
				continue
			}
			if !strings.HasSuffix(bib, ".bib") {
				bib += ".bib"
			}
			p.res.Bibs = append(p.res.Bibs, bib)
		}
	}
	p.closeToEnvironment(p.cmd.Line)
}

// closeToEnvironment closes the hierarchy nodes opened after the innermost
// open environment, or all of them when no environment is open.
func (p *parser) closeToEnvironment(line int) {
	limit := outline.NoNode
	if n := len(p.envs); n > 0 {
		limit = p.envs[n-1]
	}
	for n := len(p.blocks); n > 0 && p.blocks[n-1] > limit; n = len(p.blocks) {
		p.tree.Node(p.blocks[n-1]).EndLine = line
		p.blocks = p.blocks[:n-1]
	}
}

func (p *parser) task(t token.Token) {
	text := strings.TrimSpace(strings.TrimLeft(t.Text, "%"))
	prio := PriorityNormal
	idx := -1
	for _, kw := range []string{"FIXME", "TODO", "XXX"} {
		if i := strings.Index(text, kw); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if strings.Contains(text, "FIXME") {
		prio = PriorityHigh
	}
	if idx > 0 {
		text = text[idx:]
	}
	p.res.Tasks = append(p.res.Tasks, Task{
		Line:     t.Line,
		Pos:      t.Pos,
		Length:   len(t.Text),
		Text:     text,
		Priority: prio,
	})
}

func (p *parser) verbatim(t token.Token) {
	if !strings.HasPrefix(t.Text, `\begin`) {
		return
	}
	open := strings.IndexByte(t.Text, '{')
	closing := strings.IndexByte(t.Text, '}')
	if open < 0 || closing < open {
		return
	}
	id := p.tree.Add(outline.Node{
		Name:      t.Text[open+1 : closing],
		Type:      outline.TypeEnvironment,
		BeginLine: t.Line,
		EndLine:   t.Line + strings.Count(t.Text, "\n") + 1,
	})
	p.tree.Append(p.current(), id)
}

func (p *parser) beginDefinition(name string, line int) {
	p.def = refs.CommandEntry{
		Key:     strings.TrimPrefix(strings.TrimSpace(name), `\`),
		File:    p.opts.File,
		Line:    line,
		Context: refs.ContextNormal,
	}
	p.defOpts = 0
	p.state = stateAwaitArg2
}

func (p *parser) awaitArg2(t token.Token) {
	switch t.Kind {
	case token.Argument:
		p.state = stateNormal
		p.define(t.Text)
	case token.OptArgument:
		if p.defOpts == 0 {
			n, err := strconv.Atoi(strings.TrimSpace(t.Text))
			if err != nil {
				p.message(t.Line, t.Pos, len(t.Text), SeverityError,
					"The first optional argument of newcommand must only contain the number of arguments")
				p.state = stateNormal
				return
			}
			p.def.Arguments = n
		} else if p.defOpts == 1 && p.def.Arguments > 0 {
			p.def.Params = []refs.ParamKind{refs.Optional}
		}
		p.defOpts++
	case token.Whitespace, token.Comment:
	case token.Task:
		p.task(t)
	default:
		p.message(t.Line, t.Pos, len(t.Text), SeverityWarning, "No 2nd argument following newcommand")
		p.state = stateNormal
		p.normal(t)
	}
}

func (p *parser) define(body string) {
	d := p.def
	d.Info = body
	params := make([]refs.ParamKind, d.Arguments)
	for i := range params {
		params[i] = refs.Mandatory
	}
	if len(d.Params) > 0 && len(params) > 0 {
		params[0] = refs.Optional
	}
	d.Params = params
	p.res.Commands = append(p.res.Commands, d)

	p.reg.Declare(d.Key)
	for _, sec := range sectioningOrder {
		if strings.Contains(body, `\`+sec) {
			p.reg.Alias(d.Key, sec)
			break
		}
	}
}

func (p *parser) section(typ outline.Type, t token.Token) {
	line := p.cmd.Line
	closed := make(map[outline.NodeID]bool)
	for n := len(p.blocks); n > 0; n = len(p.blocks) {
		top := p.blocks[n-1]
		if p.tree.Node(top).Type < typ {
			break
		}
		p.tree.Node(top).EndLine = line
		closed[top] = true
		p.blocks = p.blocks[:n-1]
	}

	parent := outline.NoNode
	if n := len(p.blocks); n > 0 {
		parent = p.blocks[n-1]
	}
	if p.opts.CheckSections && typ >= outline.TypeSubsection {
		if parent == outline.NoNode || p.tree.Node(parent).Type != typ-1 {
			p.message(p.cmd.Line, p.cmd.Pos, p.cmdLength(t), SeverityWarning,
				"%s %s has no preceding %s", capitalize(typ.String()), t.Text, (typ - 1).String())
		}
	}

	// Environments left open inside a closed node move up next to it.
	for _, env := range p.envs {
		for closed[p.tree.Parent(env)] {
			up := p.tree.Parent(p.tree.Parent(env))
			p.tree.Detach(env)
			p.tree.InsertSorted(up, env)
		}
	}

	id := p.tree.Add(outline.Node{Name: t.Text, Type: typ, BeginLine: line})
	p.tree.Append(parent, id)
	p.blocks = append(p.blocks, id)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p *parser) begin(t token.Token) {
	name := strings.TrimSpace(t.Text)
	line := p.cmd.Line
	if name == "document" && !p.document {
		p.beginDocument(line)
		return
	}
	id := p.tree.Add(outline.Node{Name: name, Type: outline.TypeEnvironment, BeginLine: line})
	p.tree.Append(p.current(), id)
	p.envs = append(p.envs, id)
}

// beginDocument places everything seen so far under a preamble node and
// starts the body with empty stacks.
func (p *parser) beginDocument(line int) {
	p.document = true
	p.res.DocumentBegin = line
	for _, id := range p.blocks {
		p.tree.Node(id).EndLine = line
	}
	for _, id := range p.envs {
		p.tree.Node(id).EndLine = line
	}
	p.blocks = p.blocks[:0]
	p.envs = p.envs[:0]

	pre := p.tree.Add(outline.Node{Name: "Preamble", Type: outline.TypePreamble, BeginLine: 1, EndLine: line})
	roots := append([]outline.NodeID(nil), p.tree.Roots()...)
	for _, id := range roots {
		p.tree.Detach(id)
		p.tree.Append(pre, id)
	}
	p.tree.Insert(outline.NoNode, 0, pre)
}

func (p *parser) end(t token.Token) {
	name := strings.TrimSpace(t.Text)
	line := p.cmd.Line
	length := p.cmdLength(t)

	if name == "document" && p.document {
		p.res.DocumentEnd = line + 1
		for _, id := range p.blocks {
			p.tree.Node(id).EndLine = line
		}
		p.blocks = p.blocks[:0]
		for i := len(p.envs) - 1; i >= 0; i-- {
			env := p.tree.Node(p.envs[i])
			env.EndLine = line
			p.message(p.cmd.Line, p.cmd.Pos, length, SeverityError,
				`\end{%s} expected, but \end{document} found; at least one unbalanced begin-end`, env.Name)
			p.res.Fatal = true
		}
		p.envs = p.envs[:0]
		p.ended = true
		return
	}

	n := len(p.envs)
	if n == 0 {
		p.fatal(p.cmd.Line, p.cmd.Pos, length, `\end{%s} found with no preceding \begin`, name)
		return
	}
	top := p.envs[n-1]
	p.envs = p.envs[:n-1]
	env := p.tree.Node(top)
	env.EndLine = line + 1
	if env.Name != name {
		p.fatal(p.cmd.Line, p.cmd.Pos, length,
			`\end{%s} expected, but \end{%s} found; unbalanced begin-end`, env.Name, name)
	}
}

// finish closes everything still open at end of input.
func (p *parser) finish() {
	if !p.aborted {
		switch p.state {
		case stateAwaitArg:
			p.message(p.cmd.Line, p.cmd.Pos, len(p.cmd.Text)+p.accumulated, SeverityWarning,
				"No argument following %s", p.cmd.Text)
		case stateAwaitArg2:
			p.message(p.def.Line, 0, 0, SeverityWarning, "No 2nd argument following newcommand")
		}
	}
	end := p.lastLine + 1
	for _, id := range p.blocks {
		p.tree.Node(id).EndLine = end
	}
	for _, id := range p.envs {
		env := p.tree.Node(id)
		env.EndLine = end
		if !p.aborted {
			p.message(env.BeginLine, 0, len(env.Name), SeverityError,
				`\begin{%s} does not have matching end; at least one unbalanced begin-end`, env.Name)
			p.res.Fatal = true
		}
	}
	if !p.aborted {
		for _, b := range p.braces {
			p.message(b.Line, b.Pos, 1, SeverityError, "Unbalanced braces: missing }")
		}
	}
	p.blocks, p.envs, p.braces = nil, nil, nil

	for i := 0; i < p.tree.Len(); i++ {
		p.tree.Node(outline.NodeID(i)).File = p.opts.File
	}
	p.tree.Spans(p.src)
}
