package parser

import (
	"fmt"

	"texlipse/internal/outline"
	"texlipse/internal/refs"
)

// Severity of a Message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Message is a structural problem found while parsing. Line and Pos are
// 1-based; Pos 0 means the whole line.
type Message struct {
	Line     int
	Pos      int
	Length   int
	Msg      string
	Severity Severity
}

func (m Message) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", m.Line, m.Pos, m.Severity, m.Msg)
}

// Priority of a task comment.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityNormal
	PriorityHigh
)

// Task is a FIXME, TODO or XXX comment.
type Task struct {
	Line     int
	Pos      int
	Length   int
	Text     string
	Priority Priority
}

// Result is everything one parse of one file produced. It is returned even
// when parsing stopped early; Fatal is set in that case.
type Result struct {
	File string
	Tree *outline.Tree

	Labels   []refs.Entry
	Refs     []refs.Reference
	Cites    []refs.Reference
	Commands []refs.CommandEntry
	Inputs   []string

	DocumentClass   string
	Packages        []string
	Bibs            []string
	BibStyle        string
	Biblatex        bool
	BiblatexBackend string
	Index           bool

	// Line of \begin{document} and the line after \end{document}; zero
	// when absent.
	DocumentBegin int
	DocumentEnd   int

	Messages []Message
	Tasks    []Task
	Fatal    bool
}

// Errors returns the messages of error severity.
func (r *Result) Errors() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			out = append(out, m)
		}
	}
	return out
}
