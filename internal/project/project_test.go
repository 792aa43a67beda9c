package project_test

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"texlipse/internal/outline"
	"texlipse/internal/parser"
	"texlipse/internal/project"
	"texlipse/internal/resolver"
)

type source struct {
	files  map[string]string
	broken map[string]bool
	onRead func(name string)
}

func (s *source) Text(name string) (string, error) {
	if s.onRead != nil {
		s.onRead(name)
	}
	text, ok := s.files[name]
	if !ok || s.broken[name] {
		return "", fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return text, nil
}

func setup(files map[string]string) (*project.Project, *source) {
	src := &source{files: files}
	res := resolver.New("/work", "main.tex")
	res.SetLookup(func(rel string) bool {
		_, ok := src.files[rel]
		return ok
	})
	p := project.New(src, res, project.Options{
		Main:          "main.tex",
		AuxExtension:  ".aux",
		CheckSections: true,
	})
	return p, src
}

func load(t *testing.T, files map[string]string) (*project.Project, *project.Snapshot) {
	t.Helper()
	p, _ := setup(files)
	snap, err := p.Load(context.Background())
	require.NoError(t, err)
	return p, snap
}

// render lists the merged tree below the virtual top node.
func render(s *project.Snapshot) string {
	var b strings.Builder
	var walk func(id outline.NodeID, depth int)
	walk = func(id outline.NodeID, depth int) {
		n := s.Tree.Node(id)
		fmt.Fprintf(&b, "%s%s %s %s\n", strings.Repeat("  ", depth), n.Type, n.Name, n.File)
		for _, c := range s.Tree.Children(id) {
			walk(c, depth+1)
		}
	}
	for _, id := range s.Outline.Roots {
		walk(id, 0)
	}
	return b.String()
}

func attached(s *project.Snapshot) int {
	count := 0
	s.Tree.Walk(func(outline.NodeID, int) bool {
		count++
		return true
	})
	return count
}

func messages(msgs []parser.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Msg)
	}
	return out
}

func copyFiles(files map[string]string) map[string]string {
	out := make(map[string]string, len(files))
	for k, v := range files {
		out[k] = v
	}
	return out
}

const mainTex = "\\documentclass{book}\n" +
	"\\begin{document}\n" +
	"\\chapter{One}\n" +
	"\\input{ch1}\n" +
	"\\chapter{Two}\n" +
	"\\label{two}\n" +
	"\\end{document}\n"

func book() map[string]string {
	return map[string]string{
		"main.tex": mainTex,
		"ch1.tex":  "\\section{Alpha}\\label{alpha}\n\\section{Beta}",
	}
}

func TestLoadSplicesIncludes(t *testing.T) {
	p, snap := load(t, book())

	require.Equal(t, ""+
		"preamble Preamble main.tex\n"+
		"chapter One main.tex\n"+
		"  section Alpha ch1.tex\n"+
		"    label alpha ch1.tex\n"+
		"  section Beta ch1.tex\n"+
		"chapter Two main.tex\n"+
		"  label two main.tex\n", render(snap))

	top := snap.Tree.Node(snap.Top)
	require.Equal(t, "Entire document", top.Name)
	require.Equal(t, outline.TypeDocument, top.Type)
	require.Equal(t, []string{"main.tex", "ch1.tex"}, snap.Files)
	require.Len(t, snap.Outline.Of(outline.TypeSection), 2)
	require.ElementsMatch(t, []string{"main.tex", "ch1.tex"}, snap.Changed)
	require.Empty(t, snap.Diagnostics["main.tex"])
	require.Empty(t, snap.Problems)

	_, ok := p.Index().Label("alpha")
	require.True(t, ok)
	require.Len(t, p.Index().Labels(""), 2)
	require.Same(t, snap, p.Snapshot())
}

func TestMissingMainFile(t *testing.T) {
	p, _ := setup(map[string]string{})
	_, err := p.Load(context.Background())
	require.ErrorIs(t, err, project.ErrNoMainFile)
	require.Nil(t, p.Snapshot())

	_, err = p.ReloadBibliography(context.Background(), "refs.bib")
	require.ErrorIs(t, err, project.ErrNotLoaded)
}

func TestUpdateSplicesInPlace(t *testing.T) {
	files := book()
	p, src := setup(files)
	first, err := p.Load(context.Background())
	require.NoError(t, err)
	before := render(first)

	src.files["ch1.tex"] = "\\section{Gamma}\\label{delta}\n\\section{Delta}"
	snap, err := p.Update(context.Background(), "ch1.tex", src.files["ch1.tex"])
	require.NoError(t, err)

	_, fresh := load(t, copyFiles(src.files))
	require.Equal(t, render(fresh), render(snap))
	require.Greater(t, snap.Tree.Len(), attached(snap), "nodes were spliced into a copy of the old tree")
	require.Equal(t, []string{"ch1.tex"}, snap.Changed)
	require.Equal(t, before, render(first), "the previous snapshot is untouched")

	_, ok := p.Index().Label("alpha")
	require.False(t, ok)
	_, ok = p.Index().Label("delta")
	require.True(t, ok)
}

func TestUpdateDeeperFirstNodeNestsAtInclude(t *testing.T) {
	files := map[string]string{
		"main.tex": "\\chapter{One}\\section{S}\\input{ch1}\n",
		"ch1.tex":  "\\section{X}\\subsection{A}\n",
	}
	p, src := setup(files)
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	src.files["ch1.tex"] = "\\subsection{Z}\\section{X}\\subsection{A}\n"
	snap, err := p.Update(context.Background(), "ch1.tex", src.files["ch1.tex"])
	require.NoError(t, err)

	require.Equal(t, ""+
		"chapter One main.tex\n"+
		"  section S main.tex\n"+
		"    subsection Z ch1.tex\n"+
		"  section X ch1.tex\n"+
		"    subsection A ch1.tex\n", render(snap))
	_, fresh := load(t, copyFiles(src.files))
	require.Equal(t, render(fresh), render(snap))
}

func TestUpdateWithNewShapeMergesAgain(t *testing.T) {
	p, src := setup(book())
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	cases := []string{
		"\\section{A}\n\\subsection{B}",
		"\\chapter{Inner}",
		"",
		"\\section{Back}",
	}
	for _, text := range cases {
		src.files["ch1.tex"] = text
		snap, err := p.Update(context.Background(), "ch1.tex", text)
		require.NoError(t, err)

		_, fresh := load(t, copyFiles(src.files))
		require.Equal(t, render(fresh), render(snap), text)
	}
}

func TestUpdateIncluderMergesAgain(t *testing.T) {
	p, src := setup(book())
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	src.files["main.tex"] = strings.Replace(mainTex, "\\input{ch1}", "\\input{ch1}\n\\input{ch2}", 1)
	src.files["ch2.tex"] = "\\section{Second}"
	snap, err := p.Update(context.Background(), "main.tex", src.files["main.tex"])
	require.NoError(t, err)

	require.Equal(t, attached(snap), snap.Tree.Len())
	require.Equal(t, []string{"main.tex", "ch1.tex", "ch2.tex"}, snap.Files)
	_, fresh := load(t, copyFiles(src.files))
	require.Equal(t, render(fresh), render(snap))
}

func TestEmptyFileIsPlacedByLine(t *testing.T) {
	files := map[string]string{
		"main.tex": "\\section{A}\n\\input{x}\n\\label{after}\n",
		"x.tex":    "just text",
	}
	p, src := setup(files)
	first, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "section A main.tex\nlabel after main.tex\n", render(first))

	src.files["x.tex"] = "\\label{inx}"
	snap, err := p.Update(context.Background(), "x.tex", src.files["x.tex"])
	require.NoError(t, err)

	require.Greater(t, snap.Tree.Len(), attached(snap))
	require.Equal(t, "section A main.tex\n  label inx x.tex\nlabel after main.tex\n", render(snap))
	_, fresh := load(t, copyFiles(src.files))
	require.Equal(t, render(fresh), render(snap))
}

func TestLineHeuristic(t *testing.T) {
	tree := outline.New()
	top := tree.Add(outline.Node{Name: "Entire document", Type: outline.TypeDocument})
	tree.Append(outline.NoNode, top)
	add := func(name, file string, line int) {
		id := tree.Add(outline.Node{Name: name, Type: outline.TypeSection, BeginLine: line, File: file})
		tree.Append(top, id)
	}
	add("A", "main.tex", 1)
	add("X", "x.tex", 1)
	add("Other", "other.tex", 1)
	add("B", "main.tex", 5)

	anchors := map[string]project.Anchor{
		"x.tex":     {Parent: top, Includer: "main.tex", Line: 3},
		"other.tex": {Parent: top, Includer: "elsewhere.tex", Line: 100},
	}
	at := func(line int) int {
		return project.LineHeuristic(tree, project.Anchor{Parent: top, Includer: "main.tex", Line: line}, anchors)
	}

	require.Equal(t, 1, at(2), "before the file included on line 3")
	require.Equal(t, 3, at(4), "after it, skipping a sibling from an unrelated includer")
	require.Equal(t, 4, at(9))
	require.Equal(t, 0, at(0))
	require.Equal(t, 3, at(3), "an include on the same line lands after the earlier one")
}

func TestFatalParseKeepsOldSubtree(t *testing.T) {
	p, src := setup(book())
	first, err := p.Load(context.Background())
	require.NoError(t, err)

	snap, err := p.Update(context.Background(), "ch1.tex", "\\section{Broken\n")
	require.NoError(t, err)
	require.Same(t, first.Tree, snap.Tree)
	require.Empty(t, snap.Changed)
	require.Len(t, snap.Diagnostics["ch1.tex"], 1)
	require.Equal(t, parser.SeverityError, snap.Diagnostics["ch1.tex"][0].Severity)
	_, ok := p.Index().Label("alpha")
	require.True(t, ok, "symbols of the last good parse stay")

	snap, err = p.Update(context.Background(), "ch1.tex", src.files["ch1.tex"])
	require.NoError(t, err)
	require.Empty(t, snap.Diagnostics["ch1.tex"])
}

func TestCircularInclude(t *testing.T) {
	files := map[string]string{
		"main.tex": "\\chapter{Main}\n\\input{a}\n",
		"a.tex":    "\\section{A}\n\\input{main}\n\\input{a}\n",
	}
	_, snap := load(t, files)

	require.Equal(t, []string{
		"Circular include of main.tex",
		"Circular include of a.tex",
	}, messages(snap.Diagnostics["a.tex"]))
	require.Equal(t, 2, snap.Diagnostics["a.tex"][0].Line)
	require.Len(t, snap.Problems, 2)
	for _, err := range snap.Problems {
		require.ErrorIs(t, err, project.ErrCircularInclude)
	}
	require.Equal(t, "chapter Main main.tex\n  section A a.tex\n", render(snap))
}

func TestUnreadableInclude(t *testing.T) {
	p, src := setup(map[string]string{"main.tex": "\\input{gone}\n", "gone.tex": ""})
	src.broken = map[string]bool{"gone.tex": true}
	snap, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Diagnostics["main.tex"], 1)
	require.Contains(t, snap.Diagnostics["main.tex"][0].Msg, "Could not parse file gone.tex")
	require.ErrorIs(t, snap.Problems[0], fs.ErrNotExist)
}

func TestCancellation(t *testing.T) {
	t.Run("before load", func(t *testing.T) {
		p, _ := setup(book())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Load(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, p.Snapshot())
	})

	t.Run("while reading includes", func(t *testing.T) {
		p, src := setup(book())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src.onRead = func(name string) {
			if name == "ch1.tex" {
				cancel()
			}
		}
		_, err := p.Load(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, p.Snapshot())
		require.Empty(t, p.Index().Labels(""))
	})

	t.Run("update keeps previous state", func(t *testing.T) {
		p, _ := setup(book())
		first, err := p.Load(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = p.Update(ctx, "ch1.tex", "\\section{Other}\\label{other}")
		require.ErrorIs(t, err, context.Canceled)
		require.Same(t, first, p.Snapshot())
		_, ok := p.Index().Label("other")
		require.False(t, ok)
	})
}

func TestFileOutsideTreeIsIndexed(t *testing.T) {
	p, _ := setup(book())
	first, err := p.Load(context.Background())
	require.NoError(t, err)

	snap, err := p.Update(context.Background(), "notes.tex", "\\label{note}")
	require.NoError(t, err)
	require.Same(t, first.Tree, snap.Tree)
	_, ok := p.Index().Label("note")
	require.True(t, ok)
}

func TestUnresolvedReferences(t *testing.T) {
	files := map[string]string{
		"main.tex": "\\label{sec}\\ref{sec} \\ref{nope}\n" +
			"\\cite{knuth84,lamport94,fromaux}\n" +
			"\\bibliography{refs}\n",
		"refs.bib": "@book{knuth84, title={TAOCP}}\n",
		"main.aux": "\\bibcite{fromaux}{1}\n",
	}
	p, src := setup(files)
	snap, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"Label nope is undefined",
		"BibTeX entry key lamport94 not found",
	}, messages(snap.Diagnostics["main.tex"]))

	warning := snap.Diagnostics["main.tex"][0]
	require.Equal(t, parser.SeverityWarning, warning.Severity)
	require.Equal(t, 1, warning.Line)

	src.files["refs.bib"] += "@book{lamport94, title={LaTeX}}\n"
	snap, err = p.ReloadBibliography(context.Background(), "refs.bib")
	require.NoError(t, err)
	require.Equal(t, []string{"Label nope is undefined"}, messages(snap.Diagnostics["main.tex"]))

	entry, ok := p.Index().BibKey("knuth84")
	require.True(t, ok)
	require.Equal(t, "refs.bib", entry.File)
}
