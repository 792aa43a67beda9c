// Package lexer turns LaTeX source into tokens. Arguments of known commands
// are captured into single tokens and verbatim spans are passed through
// without interpretation.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"texlipse/internal/token"
)

type state int

const (
	stateNormal state = iota
	stateCommand
	stateBraceCapture
	stateOptionalCapture
	stateVerbatim
	stateVerb
)

var stateNames = [...]string{
	stateNormal:          "normal",
	stateCommand:         "command",
	stateBraceCapture:    "brace capture",
	stateOptionalCapture: "optional capture",
	stateVerbatim:        "verbatim",
	stateVerb:            "verb",
}

func (s state) String() string { return stateNames[s] }

// Error is a fatal lexing failure. Line and Pos locate the construct that
// could not be closed.
type Error struct {
	Line int
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d,%d] %s", e.Line, e.Pos, e.Msg)
}

type raw struct {
	tok token.Token
	off int
}

// Lexer scans one source text. It is not safe for concurrent use.
type Lexer struct {
	src  string
	off  int
	line int
	col  int

	state    state
	depth    int
	text     strings.Builder
	start    raw
	env      string
	defining bool
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Next returns the next token. reg decides which commands take captured
// arguments and which are scanned as literal words. After an error the
// lexer must not be used again.
func (l *Lexer) Next(reg *Registry) (token.Token, error) {
	for {
		var (
			t   token.Token
			ok  bool
			err error
		)
		switch l.state {
		case stateVerbatim:
			return l.verbatim(reg)
		case stateVerb:
			return l.verb()
		case stateNormal:
			t, ok = l.normal(l.scan(), reg)
		case stateCommand:
			t, ok = l.command(l.scan(), reg)
		case stateBraceCapture:
			t, ok, err = l.braceCapture(l.scan())
		case stateOptionalCapture:
			t, ok, err = l.optionalCapture(l.scan())
		}
		if err != nil {
			return token.Token{}, err
		}
		if ok {
			return t, nil
		}
	}
}

// Tokenize scans src to the end and returns all tokens including the final EOF.
func Tokenize(src string, reg *Registry) ([]token.Token, error) {
	l := New(src)
	var toks []token.Token
	for {
		t, err := l.Next(reg)
		if err != nil {
			return toks, err
		}
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) normal(r raw, reg *Registry) (token.Token, bool) {
	t := r.tok
	if t.Kind != token.CommandWord {
		return t, true
	}
	name := t.Name()
	switch {
	case name == "verb":
		l.start = r
		l.state = stateVerb
		return token.Token{}, false
	case name == "begin":
		if env, n := l.verbatimBegin(reg); n > 0 {
			l.advance(n)
			l.start = r
			l.env = env
			l.state = stateVerbatim
			return token.Token{}, false
		}
	case reg.Declared(name):
		t.Kind = token.Word
		return t, true
	}
	if reg.Captures(name) {
		l.state = stateCommand
		l.defining = reg.Defines(name)
	}
	return t, true
}

// command handles the tokens following a command that takes arguments.
func (l *Lexer) command(r raw, reg *Registry) (token.Token, bool) {
	t := r.tok
	switch t.Kind {
	case token.Whitespace, token.Star, token.Comment, token.Task:
		return t, true
	case token.LBrace:
		l.beginCapture(r, stateBraceCapture, 1)
		return token.Token{}, false
	case token.LBracket:
		l.beginCapture(r, stateOptionalCapture, 0)
		return token.Token{}, false
	case token.CommandWord, token.CommandSymbol:
		if l.defining {
			// \newcommand\name{...}
			l.defining = false
			return t, true
		}
	case token.EOF:
		l.state = stateNormal
		return t, true
	}
	l.state = stateNormal
	l.defining = false
	return l.normal(r, reg)
}

func (l *Lexer) beginCapture(r raw, s state, depth int) {
	l.start = r
	l.state = s
	l.depth = depth
	l.text.Reset()
}

func (l *Lexer) braceCapture(r raw) (token.Token, bool, error) {
	t := r.tok
	switch t.Kind {
	case token.EOF:
		return token.Token{}, false, &Error{
			Line: l.start.tok.Line,
			Pos:  l.start.tok.Pos,
			Msg:  "There's a } missing: unexpected end of file",
		}
	case token.LBrace:
		l.depth++
	case token.RBrace:
		l.depth--
	}
	if l.depth == 0 {
		return l.emitCapture(token.Argument), true, nil
	}
	l.accumulate(t)
	return token.Token{}, false, nil
}

func (l *Lexer) optionalCapture(r raw) (token.Token, bool, error) {
	t := r.tok
	switch t.Kind {
	case token.EOF:
		return token.Token{}, false, &Error{
			Line: l.start.tok.Line,
			Pos:  l.start.tok.Pos,
			Msg:  "There's a } or a ] missing: unexpected end of file",
		}
	case token.LBrace:
		l.depth++
	case token.RBrace:
		if l.depth > 0 {
			l.depth--
		}
	case token.RBracket:
		if l.depth == 0 {
			return l.emitCapture(token.OptArgument), true, nil
		}
	}
	l.accumulate(t)
	return token.Token{}, false, nil
}

func (l *Lexer) accumulate(t token.Token) {
	switch t.Kind {
	case token.Whitespace:
		l.text.WriteByte(' ')
	case token.Comment, token.Task:
	default:
		l.text.WriteString(t.Text)
	}
}

func (l *Lexer) emitCapture(kind token.Kind) token.Token {
	t := token.Token{
		Kind: kind,
		Text: l.text.String(),
		Line: l.start.tok.Line,
		Pos:  l.start.tok.Pos,
	}
	l.text.Reset()
	l.state = stateCommand
	l.defining = false
	return t
}

// verbatimBegin checks whether the text after \begin opens a verbatim
// environment and returns its name and the number of bytes up to and
// including the closing brace.
func (l *Lexer) verbatimBegin(reg *Registry) (string, int) {
	i := l.off
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	if i >= len(l.src) || l.src[i] != '{' {
		return "", 0
	}
	end := strings.IndexByte(l.src[i:], '}')
	if end < 0 {
		return "", 0
	}
	env := l.src[i+1 : i+end]
	if !reg.IsVerbatim(env) {
		return "", 0
	}
	return env, i + end + 1 - l.off
}

func (l *Lexer) verbatim(reg *Registry) (token.Token, error) {
	start := l.start
	unclosed := &Error{Line: start.tok.Line, Pos: start.tok.Pos,
		Msg: "The verbatim environment isn't closed: unexpected end of file"}
	pos := l.off
	for {
		i := strings.Index(l.src[pos:], `\end`)
		if i < 0 {
			return token.Token{}, unclosed
		}
		j := pos + i + len(`\end`)
		for j < len(l.src) && (l.src[j] == ' ' || l.src[j] == '\t') {
			j++
		}
		if j < len(l.src) && l.src[j] == '{' {
			if k := strings.IndexByte(l.src[j:], '}'); k >= 0 {
				env := l.src[j+1 : j+k]
				if env == l.env {
					l.advance(j + k + 1 - l.off)
					l.state = stateNormal
					l.env = ""
					return token.Token{
						Kind: token.Verbatim,
						Text: l.src[start.off:l.off],
						Line: start.tok.Line,
						Pos:  start.tok.Pos,
					}, nil
				}
				if reg.IsVerbatim(env) {
					return token.Token{}, &Error{Line: start.tok.Line, Pos: start.tok.Pos,
						Msg: "The verbatim environment isn't closed with the correct command"}
				}
			}
		}
		pos = j
	}
}

func (l *Lexer) verb() (token.Token, error) {
	start := l.start
	unclosed := &Error{Line: start.tok.Line, Pos: start.tok.Pos,
		Msg: "The verb-command isn't closed: unexpected end of file"}
	if l.off < len(l.src) && l.src[l.off] == '*' {
		l.advance(1)
	}
	for l.off < len(l.src) && (l.src[l.off] == ' ' || l.src[l.off] == '\t') {
		l.advance(1)
	}
	if l.off >= len(l.src) {
		return token.Token{}, unclosed
	}
	delim, size := utf8.DecodeRuneInString(l.src[l.off:])
	end := strings.IndexRune(l.src[l.off+size:], delim)
	if end < 0 {
		return token.Token{}, unclosed
	}
	l.advance(size + end + size)
	l.state = stateNormal
	return token.Token{
		Kind: token.Verbatim,
		Text: l.src[start.off:l.off],
		Line: start.tok.Line,
		Pos:  start.tok.Pos,
	}, nil
}

func (l *Lexer) advance(n int) {
	for _, c := range []byte(l.src[l.off : l.off+n]) {
		if c == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	l.off += n
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '@'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isSpecial(c byte) bool {
	switch c {
	case '\\', '{', '}', '[', ']', '*', '%':
		return true
	}
	return isSpace(c)
}

// scan reads one raw token from the source.
func (l *Lexer) scan() raw {
	r := raw{off: l.off, tok: token.Token{Line: l.line, Pos: l.col}}
	if l.off >= len(l.src) {
		r.tok.Kind = token.EOF
		return r
	}
	n := 1
	c := l.src[l.off]
	switch {
	case c == '\\':
		switch {
		case l.off+1 >= len(l.src):
			r.tok.Kind = token.Word
		case isLetter(l.src[l.off+1]):
			n = 2
			for l.off+n < len(l.src) && isLetter(l.src[l.off+n]) {
				n++
			}
			r.tok.Kind = token.CommandWord
		default:
			_, size := utf8.DecodeRuneInString(l.src[l.off+1:])
			n = 1 + size
			r.tok.Kind = token.CommandSymbol
		}
	case c == '{':
		r.tok.Kind = token.LBrace
	case c == '}':
		r.tok.Kind = token.RBrace
	case c == '[':
		r.tok.Kind = token.LBracket
	case c == ']':
		r.tok.Kind = token.RBracket
	case c == '*':
		r.tok.Kind = token.Star
	case c == '%':
		n = strings.IndexByte(l.src[l.off:], '\n')
		if n < 0 {
			n = len(l.src) - l.off
		}
		r.tok.Kind = token.Comment
		if isTask(l.src[l.off : l.off+n]) {
			r.tok.Kind = token.Task
		}
	case isSpace(c):
		for l.off+n < len(l.src) && isSpace(l.src[l.off+n]) {
			n++
		}
		r.tok.Kind = token.Whitespace
	default:
		for l.off+n < len(l.src) && !isSpecial(l.src[l.off+n]) {
			n++
		}
		r.tok.Kind = token.Word
	}
	r.tok.Text = l.src[l.off : l.off+n]
	l.advance(n)
	return r
}

func isTask(comment string) bool {
	return strings.Contains(comment, "FIXME") ||
		strings.Contains(comment, "TODO") ||
		strings.Contains(comment, "XXX")
}
