// Package bibliography reads entry keys from BibTeX databases and from the
// \bibcite lines LaTeX writes to .aux files.
package bibliography

import (
	"regexp"
	"strings"

	"texlipse/internal/refs"
)

var (
	entryStart = regexp.MustCompile(`@([A-Za-z]+)\s*[{(]\s*([^,\s{}()]+)\s*,`)
	bibcite    = regexp.MustCompile(`\\bibcite\{([^}]+)\}`)
	field      = regexp.MustCompile(`(?is)\b(author|title|year)\s*=\s*(?:\{((?:[^{}]|\{[^{}]*\})*)\}|"([^"]*)"|(\d+))`)
)

// Entry types that never carry a citation key.
var skipped = map[string]bool{
	"string":   true,
	"preamble": true,
	"comment":  true,
}

// Parse returns one entry per citation key in a .bib file. Info holds a short
// author, title and year summary when those fields are present.
func Parse(text, file string) []refs.Entry {
	var entries []refs.Entry
	starts := entryStart.FindAllStringSubmatchIndex(text, -1)
	for i, m := range starts {
		typ := strings.ToLower(text[m[2]:m[3]])
		if skipped[typ] {
			continue
		}
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		entries = append(entries, refs.Entry{
			Key:    text[m[4]:m[5]],
			Info:   summary(typ, text[m[1]:end]),
			File:   file,
			Line:   lineOf(text, m[0]),
			Offset: m[4],
			Length: m[5] - m[4],
		})
	}
	return entries
}

func summary(typ, body string) string {
	values := map[string]string{}
	for _, m := range field.FindAllStringSubmatch(body, -1) {
		name := strings.ToLower(m[1])
		if _, ok := values[name]; ok {
			continue
		}
		v := m[2] + m[3] + m[4]
		values[name] = strings.Join(strings.Fields(v), " ")
	}
	var parts []string
	for _, name := range []string{"author", "title", "year"} {
		if v, ok := values[name]; ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return typ
	}
	return typ + ": " + strings.Join(parts, ", ")
}

// ParseAux returns the keys cited through \bibcite in an .aux file.
func ParseAux(text, file string) []refs.Entry {
	var entries []refs.Entry
	seen := make(map[string]bool)
	for _, m := range bibcite.FindAllStringSubmatchIndex(text, -1) {
		key := strings.TrimSpace(text[m[2]:m[3]])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, refs.Entry{Key: key, File: file, Line: lineOf(text, m[0])})
	}
	return entries
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
