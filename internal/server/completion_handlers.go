package server

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"texlipse/internal/lexer"
	"texlipse/internal/manager"
	"texlipse/internal/refs"
)

var includeCommands = map[string]bool{"input": true, "include": true}

// argument is the braced argument around a cursor.
type argument struct {
	command string
	// item is the comma separated element under the cursor and prefix the
	// part of it before the cursor.
	item   string
	prefix string
}

// argumentAt finds the braced argument of a command around byte column col
// of line. Optional arguments and a star between the command and the brace
// are skipped.
func argumentAt(line string, col int) (argument, bool) {
	col = min(max(col, 0), len(line))
	open := strings.LastIndexByte(line[:col], '{')
	if open < 0 || strings.IndexByte(line[open:col], '}') >= 0 {
		return argument{}, false
	}
	end := len(line)
	if i := strings.IndexByte(line[col:], '}'); i >= 0 {
		end = col + i
	}
	body, rel := line[open+1:end], col-open-1
	start := strings.LastIndexByte(body[:rel], ',') + 1
	stop := len(body)
	if i := strings.IndexByte(body[rel:], ','); i >= 0 {
		stop = rel + i
	}

	i := open
	for i > 0 && line[i-1] == ']' {
		j := strings.LastIndexByte(line[:i-1], '[')
		if j < 0 {
			return argument{}, false
		}
		i = j
	}
	if i > 0 && line[i-1] == '*' {
		i--
	}
	j := i
	for j > 0 && isLetter(line[j-1]) {
		j--
	}
	if j == i || j == 0 || line[j-1] != '\\' {
		return argument{}, false
	}
	return argument{
		command: line[j:i],
		item:    strings.TrimSpace(body[start:stop]),
		prefix:  strings.TrimLeft(body[start:rel], " "),
	}, true
}

// commandAt returns the letters of the command name being typed at col.
func commandAt(line string, col int) (string, bool) {
	col = min(max(col, 0), len(line))
	j := col
	for j > 0 && isLetter(line[j-1]) {
		j--
	}
	if j == 0 || line[j-1] != '\\' {
		return "", false
	}
	return line[j:col], true
}

func isLetter(b byte) bool { return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' }

// lineAt returns the line of text holding pos and the byte column of pos
// within it.
func lineAt(text string, pos protocol.Position) (string, int) {
	offset := manager.PositionToOffset(text, pos)
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		end = offset + i
	}
	return text[start:end], offset - start
}

// commandContext decides which band of commands fits the cursor: math
// after an odd number of unescaped dollars, preamble before
// \begin{document}.
func (s *Server) commandContext(name string, line int, text string, col int) refs.Context {
	dollars := 0
	for i := 0; i < col; i++ {
		if text[i] == '$' && (i == 0 || text[i-1] != '\\') {
			dollars++
		}
	}
	if dollars%2 == 1 {
		return refs.ContextMath
	}
	if res := s.result(name); res != nil && res.DocumentBegin > 0 && line < res.DocumentBegin {
		return refs.ContextPreamble
	}
	return refs.ContextNormal
}

func (s *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	text, err := s.docs.Text(name)
	if err != nil {
		return nil, err
	}
	line, col := lineAt(text, params.Position)
	idx := s.project.Index()

	items := []protocol.CompletionItem{}
	if arg, ok := argumentAt(line, col); ok {
		switch {
		case lexer.RefCommands[arg.command]:
			items = entryItems(items, idx.Labels(arg.prefix), protocol.CompletionItemKindReference)
			return protocol.CompletionList{Items: items}, nil
		case lexer.CiteCommands[arg.command]:
			items = entryItems(items, idx.BibKeys(arg.prefix), protocol.CompletionItemKindValue)
			return protocol.CompletionList{Items: items}, nil
		}
	}
	if prefix, ok := commandAt(line, col); ok {
		ctx := s.commandContext(name, int(params.Position.Line)+1, line, col)
		for _, c := range idx.Commands(ctx, prefix) {
			items = append(items, commandItem(c))
		}
	}
	return protocol.CompletionList{Items: items}, nil
}

func entryItems(items []protocol.CompletionItem, entries []refs.Entry, kind protocol.CompletionItemKind) []protocol.CompletionItem {
	for _, e := range entries {
		item := protocol.CompletionItem{Label: e.Key, Kind: &kind}
		if e.File != "" {
			detail := e.File
			item.Detail = &detail
		}
		if e.Info != "" {
			item.Documentation = protocol.MarkupContent{Kind: protocol.MarkupKindPlainText, Value: e.Info}
		}
		items = append(items, item)
	}
	return items
}

func commandItem(c refs.CommandEntry) protocol.CompletionItem {
	kind := protocol.CompletionItemKindFunction
	detail := c.Signature()
	item := protocol.CompletionItem{Label: c.Key, Kind: &kind, Detail: &detail}
	if c.Info != "" {
		item.Documentation = protocol.MarkupContent{Kind: protocol.MarkupKindPlainText, Value: c.Info}
	}
	return item
}
