package refs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"texlipse/internal/refs"
)

func keys(entries []refs.Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Key)
	}
	return out
}

func newContainer(file string, ks ...string) *refs.Container {
	c := refs.NewContainer()
	var entries []refs.Entry
	for i, k := range ks {
		entries = append(entries, refs.Entry{Key: k, Line: i + 1})
	}
	c.AddOrReplace(file, entries)
	c.Organize()
	return c
}

func TestPrefixRange(t *testing.T) {
	c := newContainer("main.tex", "Beta", "alpha2", "Alpha")

	t.Run("matches ignoring case", func(t *testing.T) {
		lo, hi := c.PrefixRange("al")
		require.Equal(t, 0, lo)
		require.Equal(t, 2, hi)
		require.ElementsMatch(t, []string{"Alpha", "alpha2"}, keys(c.Sorted()[lo:hi]))
	})

	t.Run("no match", func(t *testing.T) {
		lo, hi := c.PrefixRange("z")
		require.Equal(t, lo, hi)
		require.Empty(t, c.Prefix("z"))
	})

	t.Run("empty prefix covers everything", func(t *testing.T) {
		lo, hi := c.PrefixRange("")
		require.Equal(t, 0, lo)
		require.Equal(t, 3, hi)
	})

	t.Run("exact key", func(t *testing.T) {
		require.Equal(t, []string{"Beta"}, keys(c.Prefix("BETA")))
	})
}

func TestLookupCaseCollision(t *testing.T) {
	c := newContainer("main.tex", "fig1", "Fig1", "fig2")

	e, ok := c.Lookup("Fig1")
	require.True(t, ok)
	require.Equal(t, "Fig1", e.Key)

	e, ok = c.Lookup("fig1")
	require.True(t, ok)
	require.Equal(t, "fig1", e.Key)

	require.False(t, c.Exists("FIG1"))
	require.True(t, c.Exists("fig2"))
	require.False(t, c.Exists("fig3"))
}

func TestDuplicatesAcrossFilesAreKept(t *testing.T) {
	c := refs.NewContainer()
	c.AddOrReplace("a.tex", []refs.Entry{{Key: "x"}})
	c.AddOrReplace("b.tex", []refs.Entry{{Key: "x"}})
	c.Organize()
	require.Len(t, c.Sorted(), 2)
	require.Equal(t, 2, c.Size())
	require.Equal(t, "a.tex", c.Sorted()[0].File)

	c.AddOrReplace("b.tex", nil)
	c.Organize()
	require.Equal(t, 1, c.Size())
	require.Len(t, c.Sorted(), 1)
}

func TestAddAuxDropsKnownKeys(t *testing.T) {
	c := newContainer("refs.bib", "knuth", "lamport")
	c.AddAux("main.aux", []refs.Entry{{Key: "knuth"}, {Key: "dijkstra"}})
	c.Organize()
	require.Equal(t, []string{"dijkstra"}, keys(c.Entries("main.aux")))

	// Re-reading the same .aux keeps its own keys.
	c.AddAux("main.aux", []refs.Entry{{Key: "dijkstra"}})
	c.Organize()
	require.Equal(t, []string{"dijkstra"}, keys(c.Entries("main.aux")))
}

func TestUpdateBibsAndFreshness(t *testing.T) {
	c := refs.NewContainer()
	c.AddOrReplace("a.bib", []refs.Entry{{Key: "k1"}})
	c.AddOrReplace("b.bib", []refs.Entry{{Key: "k2"}, {Key: "k3"}})

	require.True(t, c.CheckFreshness([]string{"b.bib", "a.bib"}))
	require.False(t, c.CheckFreshness([]string{"a.bib", "c.bib"}))

	toParse := c.UpdateBibs([]string{"b.bib", "c.bib"})
	require.Equal(t, []string{"c.bib"}, toParse)
	require.Equal(t, 2, c.Size())
	require.Equal(t, []string{"b.bib"}, c.Files())
}

func TestUpdateRefSourceAndRemoveResolved(t *testing.T) {
	c := newContainer("main.tex", "a")
	require.False(t, c.UpdateRefSource("other.tex", []refs.Entry{{Key: "b"}}))
	require.True(t, c.UpdateRefSource("main.tex", []refs.Entry{{Key: "b"}}))
	require.True(t, c.Exists("b"))

	missing := c.RemoveResolved([]refs.Reference{{Key: "a"}, {Key: "b"}})
	require.Len(t, missing, 1)
	require.Equal(t, "a", missing[0].Key)
}

func TestSetLabelInfo(t *testing.T) {
	lines := []string{"one", "two", "three", "four", "five", "six"}
	e := refs.Entry{Key: "x", Line: 4}
	e.SetLabelInfo(lines)
	require.Equal(t, "two\nthree\nfour\nfive\nsix", e.Info)

	e = refs.Entry{Key: "y", Line: 1}
	e.SetLabelInfo(lines)
	require.Equal(t, "one\ntwo\nthree", e.Info)
}

func TestCommandBands(t *testing.T) {
	c := refs.NewCommandContainer()
	c.AddOrReplace("main.tex", []refs.CommandEntry{{Key: "R", Info: "\\mathbb{R}", Context: refs.ContextNormal}})
	c.Organize()

	for _, ctx := range []refs.Context{refs.ContextNormal, refs.ContextPreamble, refs.ContextMath} {
		band := c.SortedCommands(ctx)
		require.NotEmpty(t, band, ctx.String())
		for _, cmd := range band {
			require.Equal(t, ctx, cmd.Context)
		}
	}

	_, ok := c.Lookup(refs.ContextMath, "R")
	require.True(t, ok, "user commands are duplicated into math")
	_, ok = c.Lookup(refs.ContextNormal, "R")
	require.True(t, ok)
	_, ok = c.Lookup(refs.ContextPreamble, "R")
	require.False(t, ok)

	_, ok = c.Lookup(refs.ContextMath, "frac")
	require.True(t, ok)
	_, ok = c.Lookup(refs.ContextNormal, "frac")
	require.False(t, ok, "built-ins stay in their declared band")

	band := c.SortedCommands(refs.ContextNormal)
	lo, hi := c.PrefixRange(refs.ContextNormal, "sub")
	var names []string
	for _, cmd := range band[lo:hi] {
		names = append(names, cmd.Key)
	}
	require.Equal(t, []string{"subparagraph", "subsection", "subsubsection"}, names)
}

func TestManagerCompletion(t *testing.T) {
	m := refs.NewManager()
	m.Update(func(labels, bibs *refs.Container, commands *refs.CommandContainer) {
		labels.AddOrReplace("main.tex", []refs.Entry{{Key: "sec:intro"}, {Key: "fig:one"}})
		bibs.AddOrReplace("refs.bib", []refs.Entry{{Key: "knuth84"}})
	})

	require.Len(t, m.Labels(""), 2)
	require.Equal(t, []string{"sec:intro"}, keys(m.Labels("sec")))
	require.Nil(t, m.Labels("tab"))
	require.Equal(t, []string{"knuth84"}, keys(m.BibKeys("KN")))
	require.Nil(t, m.Commands(refs.ContextNormal, "zzz"))
	require.NotEmpty(t, m.Commands(refs.ContextNormal, "sec"))

	_, ok := m.Label("fig:one")
	require.True(t, ok)
}
