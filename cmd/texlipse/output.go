package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"texlipse/internal/outline"
	"texlipse/internal/parser"
	"texlipse/internal/project"
	"texlipse/internal/refs"
)

var (
	// titleStyle for file headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	// dimStyle for locations and other metadata
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// boxStyle for the check summary
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("69")).
			Padding(0, 1)
)

var typeStyles = map[outline.Type]lipgloss.Style{
	outline.TypePart:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
	outline.TypeChapter:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
	outline.TypeSection:     lipgloss.NewStyle().Bold(true),
	outline.TypeEnvironment: lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
	outline.TypePreamble:    dimStyle,
	outline.TypeLabel:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	outline.TypeInput:       lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
}

func styleFor(typ outline.Type) lipgloss.Style {
	if s, ok := typeStyles[typ]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// FormatOutline writes the merged outline as an indented tree, maxDepth
// levels deep when positive.
func FormatOutline(w io.Writer, in outline.Input, maxDepth int, withLabels bool) {
	var visit func(ids []outline.NodeID, depth int)
	visit = func(ids []outline.NodeID, depth int) {
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, id := range ids {
			n := in.Tree.Node(id)
			if n.Type == outline.TypeLabel && !withLabels {
				continue
			}
			name := n.Name
			if name == "" {
				name = n.Type.String()
			}
			fmt.Fprintf(w, "%s%s %s\n",
				strings.Repeat("  ", depth),
				styleFor(n.Type).Render(name),
				dimStyle.Render(fmt.Sprintf("%s %s:%d", n.Type, n.File, n.BeginLine)),
			)
			visit(in.Tree.Children(id), depth+1)
		}
	}
	visit(in.Roots, 0)
}

// counts tallies diagnostics by severity.
type counts struct {
	errors, warnings, infos int
}

func severityLabel(sev parser.Severity) string {
	switch sev {
	case parser.SeverityError:
		return errorStyle.Render("error")
	case parser.SeverityWarning:
		return warningStyle.Render("warning")
	}
	return infoStyle.Render("info")
}

// FormatDiagnostics writes the diagnostics of every file in name order,
// followed by the task markers when tasks is set, and returns the totals.
func FormatDiagnostics(w io.Writer, snap *project.Snapshot, tasks bool) counts {
	var c counts
	files := make([]string, 0, len(snap.Diagnostics))
	for file, msgs := range snap.Diagnostics {
		if len(msgs) > 0 || tasks && snap.Results[file] != nil && len(snap.Results[file].Tasks) > 0 {
			files = append(files, file)
		}
	}
	slices.Sort(files)

	for _, file := range files {
		fmt.Fprintln(w, titleStyle.Render(file))
		for _, m := range snap.Diagnostics[file] {
			switch m.Severity {
			case parser.SeverityError:
				c.errors++
			case parser.SeverityWarning:
				c.warnings++
			default:
				c.infos++
			}
			fmt.Fprintf(w, "  %s %s %s\n", dimStyle.Render(fmt.Sprintf("%d:%d", m.Line, m.Pos)), severityLabel(m.Severity), m.Msg)
		}
		if !tasks || snap.Results[file] == nil {
			continue
		}
		for _, t := range snap.Results[file].Tasks {
			label := infoStyle.Render("task")
			if t.Priority == parser.PriorityHigh {
				label = warningStyle.Render("task")
			}
			fmt.Fprintf(w, "  %s %s %s\n", dimStyle.Render(fmt.Sprintf("%d:%d", t.Line, t.Pos)), label, t.Text)
		}
	}
	return c
}

// FormatSummary renders the totals of a check in a box.
func FormatSummary(w io.Writer, snap *project.Snapshot, c counts) {
	status := successStyle.Render("OK")
	if c.errors > 0 {
		status = errorStyle.Render("FAILED")
	}
	content := fmt.Sprintf("%s %d  %s %d  %s %d  %s %d\n%s",
		dimStyle.Render("Files:"), len(snap.Files),
		dimStyle.Render("Errors:"), c.errors,
		dimStyle.Render("Warnings:"), c.warnings,
		dimStyle.Render("Info:"), c.infos,
		status,
	)
	fmt.Fprintln(w, boxStyle.Render(content))
}

// FormatEntries lists labels or bibliography keys with their location.
func FormatEntries(w io.Writer, title string, entries []refs.Entry) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(entries))))
	for _, e := range entries {
		fmt.Fprintf(w, "  %s %s\n", e.Key, dimStyle.Render(fmt.Sprintf("%s:%d", e.File, e.Line)))
	}
}

// FormatCommands lists user defined commands with their signature.
func FormatCommands(w io.Writer, commands []refs.CommandEntry) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("commands (%d)", len(commands))))
	for _, c := range commands {
		fmt.Fprintf(w, "  %s %s\n", c.Signature(), dimStyle.Render(fmt.Sprintf("%s:%d", c.File, c.Line)))
	}
}
