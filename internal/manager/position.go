package manager

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// PositionToOffset computes the byte offset of an LSP position, whose
// character counts UTF-16 code units. Positions past the end are clamped.
func PositionToOffset(document string, pos protocol.Position) int {
	lines := strings.Split(document, "\n")
	// Clamp line number
	if int(pos.Line) >= len(lines) {
		return len(document)
	}
	offset := 0
	// Sum bytes for all lines before the target line (including newline)
	for i := protocol.UInteger(0); i < pos.Line; i++ {
		offset += len(lines[i]) + 1
	}
	var charCount protocol.UInteger
	for _, r := range lines[pos.Line] {
		unitCount := protocol.UInteger(utf16Len(r))
		if charCount+unitCount > pos.Character {
			break
		}
		charCount += unitCount
		offset += utf8.RuneLen(r)
	}
	return offset
}

// Position converts a 1-based line and 1-based byte column, as used in
// parser results, to an LSP position. Column 0 means the start of the line.
func Position(document string, line, col int) protocol.Position {
	if line < 1 {
		line = 1
	}
	lines := strings.Split(document, "\n")
	if line > len(lines) {
		return protocol.Position{Line: protocol.UInteger(line - 1)}
	}
	text := lines[line-1]
	end := col - 1
	if end > len(text) {
		end = len(text)
	}
	if end < 0 {
		end = 0
	}
	return protocol.Position{
		Line:      protocol.UInteger(line - 1),
		Character: protocol.UInteger(utf16Count(text[:end])),
	}
}

// ApplyTextEdit applies a single LSP edit to the given document.
func ApplyTextEdit(edit protocol.TextDocumentContentChangeEvent, document string) string {
	if edit.Range == nil {
		return edit.Text
	}
	start := PositionToOffset(document, edit.Range.Start)
	end := PositionToOffset(document, edit.Range.End)
	if end < start {
		end = start
	}
	return document[:start] + edit.Text + document[end:]
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

func utf16Count(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}
