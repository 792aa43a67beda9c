// Package token defines the lexical tokens of LaTeX source as seen by the
// structural parser.
package token

import (
	"fmt"
	"strconv"
)

// Kind is the closed set of token categories.
type Kind int

const (
	Illegal Kind = iota
	EOF

	CommandWord   // \section
	CommandSymbol // \{, \\, \%
	LBrace        // {
	RBrace        // }
	LBracket      // [
	RBracket      // ]
	Star          // *

	// Captured arguments carry the full brace balanced text.
	Argument    // {...} after a command that takes arguments
	OptArgument // [...] after a command that takes arguments

	Word       // plain text run
	Whitespace // spaces, tabs and newlines
	Comment    // % to end of line
	Task       // comment containing FIXME, TODO or XXX
	Verbatim   // verbatim environment or \verb span, uninterpreted
)

var kinds = [...]string{
	Illegal:       "Illegal",
	EOF:           "EOF",
	CommandWord:   "CommandWord",
	CommandSymbol: "CommandSymbol",
	LBrace:        "LBrace",
	RBrace:        "RBrace",
	LBracket:      "LBracket",
	RBracket:      "RBracket",
	Star:          "Star",
	Argument:      "Argument",
	OptArgument:   "OptArgument",
	Word:          "Word",
	Whitespace:    "Whitespace",
	Comment:       "Comment",
	Task:          "Task",
	Verbatim:      "Verbatim",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if 0 <= k && int(k) < len(kinds) {
		return kinds[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsCommand reports whether k starts with a backslash.
func (k Kind) IsCommand() bool { return k == CommandWord || k == CommandSymbol }

// IsCapture reports whether k is an argument captured by the lexer.
func (k Kind) IsCapture() bool { return k == Argument || k == OptArgument }

// Token is one lexical unit. Line and Pos are 1-based; Pos counts bytes
// from the start of the line. For captured arguments Line and Pos point at
// the opening delimiter and Text holds the content without delimiters.
type Token struct {
	Kind Kind
	Text string
	Line int
	Pos  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Text, t.Line, t.Pos)
}

// Name returns the command name without the leading backslash.
func (t Token) Name() string {
	if t.Kind.IsCommand() && len(t.Text) > 0 {
		return t.Text[1:]
	}
	return t.Text
}
