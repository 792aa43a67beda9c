// Package refs keeps the project wide symbol indexes: labels, bibliography
// keys and commands. Each index holds one entry list per source file and a
// derived sorted array that is rebuilt by Organize.
package refs

import "strings"

// Entry is a label or bibliography key declared in a file.
type Entry struct {
	Key     string
	Info    string
	File    string
	Line    int
	EndLine int
	Offset  int
	Length  int
}

// SetLabelInfo sets Info to the source text from two lines before to two
// lines after the declaration line. lines holds the file split on newlines.
func (e *Entry) SetLabelInfo(lines []string) {
	if e.Line < 1 || e.Line > len(lines) {
		return
	}
	from := e.Line - 3
	if from < 0 {
		from = 0
	}
	to := e.Line + 2
	if to > len(lines) {
		to = len(lines)
	}
	e.Info = strings.TrimSpace(strings.Join(lines[from:to], "\n"))
}

// Reference is a use of a key in the text, such as \ref{key} or one key of
// \cite{a,b}.
type Reference struct {
	Key    string
	Line   int
	Pos    int
	Length int
}
