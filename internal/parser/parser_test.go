package parser_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"texlipse/internal/lexer"
	"texlipse/internal/outline"
	"texlipse/internal/parser"
	"texlipse/internal/refs"
)

func parse(src string) *parser.Result {
	return parser.Parse(src, parser.Options{File: "main.tex", CheckSections: true})
}

func named(res *parser.Result, ids []outline.NodeID) []string {
	var out []string
	for _, id := range ids {
		out = append(out, res.Tree.Node(id).Name)
	}
	return out
}

func messagesContaining(res *parser.Result, s string) []parser.Message {
	var out []parser.Message
	for _, m := range res.Messages {
		if strings.Contains(m.Msg, s) {
			out = append(out, m)
		}
	}
	return out
}

func TestBasicDocument(t *testing.T) {
	src := "\\documentclass{article}\n" +
		"\\begin{document}\n" +
		"\\section{Intro}\\label{sec:intro}Hello \\ref{sec:intro}.\n" +
		"\\end{document}\n"
	res := parse(src)

	require.False(t, res.Fatal)
	require.Empty(t, res.Messages)
	require.Equal(t, "article", res.DocumentClass)

	roots := res.Tree.Roots()
	require.Equal(t, []string{"Preamble", "Intro"}, named(res, roots))

	pre := res.Tree.Node(roots[0])
	require.Equal(t, outline.TypePreamble, pre.Type)
	require.Equal(t, 1, pre.BeginLine)
	require.Equal(t, 2, pre.EndLine)

	sec := roots[1]
	require.Equal(t, outline.TypeSection, res.Tree.Node(sec).Type)
	children := res.Tree.Children(sec)
	require.Equal(t, []string{"sec:intro"}, named(res, children))
	require.Equal(t, outline.TypeLabel, res.Tree.Node(children[0]).Type)

	require.Len(t, res.Labels, 1)
	require.Equal(t, "sec:intro", res.Labels[0].Key)
	require.Len(t, res.Refs, 1)

	labels := refs.NewContainer()
	labels.AddOrReplace("main.tex", res.Labels)
	labels.Organize()
	require.True(t, labels.Exists(res.Refs[0].Key))
	require.Empty(t, labels.RemoveResolved(res.Refs))

	require.Equal(t, 2, res.DocumentBegin)
	require.Equal(t, 5, res.DocumentEnd)
}

func TestPreambleHoldsEnvironments(t *testing.T) {
	res := parse("\\documentclass{article}\n" +
		"\\begin{filecontents}{x.bib}\n" +
		"\\end{filecontents}\n" +
		"\\begin{document}\n" +
		"\\section{S}\\label{s}\n" +
		"\\end{document}\n")

	roots := res.Tree.Roots()
	require.Equal(t, outline.TypePreamble, res.Tree.Node(roots[0]).Type)
	kids := res.Tree.Children(roots[0])
	require.Len(t, kids, 1)
	require.Equal(t, outline.TypeEnvironment, res.Tree.Node(kids[0]).Type)

	// Preamble takes whatever came before the body, so only its children
	// may be shallower than their parent.
	res.Tree.Walk(func(id outline.NodeID, _ int) bool {
		parent := res.Tree.Parent(id)
		if parent == outline.NoNode || res.Tree.Node(parent).Type == outline.TypePreamble {
			return true
		}
		require.Greater(t, res.Tree.Node(id).Type, res.Tree.Node(parent).Type)
		return true
	})
}

func TestMissingArgument(t *testing.T) {
	res := parse(`\section \label{x}`)

	require.False(t, res.Fatal)
	warnings := messagesContaining(res, `No argument following \section`)
	require.Len(t, warnings, 1)
	require.Equal(t, parser.SeverityWarning, warnings[0].Severity)
	require.Len(t, res.Labels, 1)
	require.Equal(t, "x", res.Labels[0].Key)
	for _, id := range res.Tree.Roots() {
		require.NotEqual(t, outline.TypeSection, res.Tree.Node(id).Type)
	}
}

func TestMissingArgumentAtEndOfInput(t *testing.T) {
	res := parse("text \\label")
	require.Len(t, messagesContaining(res, `No argument following \label`), 1)
	require.False(t, res.Fatal)
}

func TestVerbatimOpacity(t *testing.T) {
	src := "\\begin{document}\n" +
		"\\begin{verbatim}\\section{not a section}\\end{verbatim}\n" +
		"\\end{document}\n"
	res := parse(src)

	require.False(t, res.Fatal)
	in := outline.NewInput(res.Tree)
	require.Empty(t, in.Of(outline.TypeSection))
	envs := in.Of(outline.TypeEnvironment)
	require.Equal(t, []string{"verbatim"}, named(res, envs))
}

func TestBraceBalance(t *testing.T) {
	cases := []struct {
		src     string
		missing int // unmatched {
		extra   int // unmatched }
	}{
		{"balanced {a {b}} c", 0, 0},
		{"{{ a } b", 1, 0},
		{"a } b }", 0, 2},
		{"} {{ x }", 1, 1},
		{"{ { {", 3, 0},
		{"\\{ not a brace \\}", 0, 0},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			res := parse(c.src)
			require.False(t, res.Fatal)
			require.Len(t, messagesContaining(res, "missing }"), c.missing)
			require.Len(t, messagesContaining(res, "missing {"), c.extra)
		})
	}
}

func TestSectioningHierarchy(t *testing.T) {
	commands := []string{"part", "chapter", "section", "subsection", "subsubsection", "paragraph"}
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			var b strings.Builder
			for i := 0; i < 40; i++ {
				fmt.Fprintf(&b, "\\%s{n%d}\n", commands[rng.Intn(len(commands))], i)
			}
			res := parser.Parse(b.String(), parser.Options{})
			require.False(t, res.Fatal)

			tree := res.Tree
			count := 0
			tree.Walk(func(id outline.NodeID, _ int) bool {
				count++
				n := tree.Node(id)
				require.GreaterOrEqual(t, n.EndLine, n.BeginLine)
				if parent := tree.Parent(id); parent != outline.NoNode {
					require.Greater(t, n.Type, tree.Node(parent).Type)
				}
				kids := tree.Children(id)
				for i := 1; i < len(kids); i++ {
					require.LessOrEqual(t, tree.Node(kids[i-1]).BeginLine, tree.Node(kids[i]).BeginLine)
				}
				return true
			})
			require.Equal(t, 40, count)
		})
	}
}

func TestEnvironmentClosing(t *testing.T) {
	t.Run("matching", func(t *testing.T) {
		res := parse("\\begin{foo}\ntext\n\\end{foo}\n")
		require.False(t, res.Fatal)
		envs := outline.NewInput(res.Tree).Of(outline.TypeEnvironment)
		require.Len(t, envs, 1)
		env := res.Tree.Node(envs[0])
		require.Equal(t, "foo", env.Name)
		require.Equal(t, 1, env.BeginLine)
		require.Equal(t, 3, env.EndLine-1, "end line is exclusive")
	})

	t.Run("mismatch", func(t *testing.T) {
		res := parse("\\begin{foo}\n\\end{bar}\n\\section{After}")
		require.True(t, res.Fatal)
		errs := messagesContaining(res, `\end{foo} expected, but \end{bar} found; unbalanced begin-end`)
		require.Len(t, errs, 1)
		require.Equal(t, 2, errs[0].Line)
		env := res.Tree.Node(res.Tree.Roots()[0])
		require.Equal(t, 3, env.EndLine)
		require.Len(t, res.Tree.Roots(), 1, "structural inference stops at the fatal error")
	})

	t.Run("dangling end", func(t *testing.T) {
		res := parse(`\end{foo}`)
		require.True(t, res.Fatal)
		require.Len(t, messagesContaining(res, "found with no preceding"), 1)
	})

	t.Run("unclosed at end of input", func(t *testing.T) {
		res := parse("\\begin{foo}\nx\n")
		require.True(t, res.Fatal)
		require.Len(t, messagesContaining(res, `\begin{foo} does not have matching end`), 1)
		require.Equal(t, 4, res.Tree.Node(res.Tree.Roots()[0]).EndLine)
	})

	t.Run("open at end of document", func(t *testing.T) {
		res := parse("\\begin{document}\n\\begin{foo}\n\\end{document}\n")
		require.True(t, res.Fatal)
		require.Len(t, messagesContaining(res, `\end{foo} expected, but \end{document} found`), 1)
	})
}

func TestEnvironmentHoisting(t *testing.T) {
	src := "\\section{A}\n" +
		"\\begin{multicols}\n" +
		"\\subsection{B}\n" +
		"\\section{C}\n" +
		"\\label{l}\n" +
		"\\end{multicols}\n"
	res := parse(src)
	require.False(t, res.Fatal)

	tree := res.Tree
	roots := tree.Roots()
	require.Equal(t, []string{"A", "multicols", "C"}, named(res, roots))
	require.Equal(t, []string{"B"}, named(res, tree.Children(roots[0])))
	require.Equal(t, []string{"l"}, named(res, tree.Children(roots[2])))

	require.Equal(t, 4, tree.Node(roots[0]).EndLine)
	env := tree.Node(roots[1])
	require.Equal(t, 2, env.BeginLine)
	require.Equal(t, 7, env.EndLine)
}

func TestDeterminism(t *testing.T) {
	src := "\\documentclass{book}\n\\newcommand{\\R}{\\mathbb{R}}\n\\begin{document}\n" +
		"\\chapter{One}\\label{ch:one}\n\\section{S}\\cite{a,b} \\ref{ch:one} { \n" +
		"% FIXME check\n\\begin{figure}\\label{fig}\\end{figure}\n\\end{document}\n"
	first := parse(src)
	second := parse(src)
	require.Equal(t, first, second)
	require.Equal(t, first.Tree.String(), second.Tree.String())
}

func TestNewCommand(t *testing.T) {
	t.Run("sectioning alias", func(t *testing.T) {
		res := parse("\\newcommand{\\mysec}[1]{\\section{#1}}\n\\mysec{Alpha}\n")
		require.False(t, res.Fatal)
		require.Len(t, res.Commands, 1)
		cmd := res.Commands[0]
		require.Equal(t, "mysec", cmd.Key)
		require.Equal(t, 1, cmd.Arguments)
		require.Equal(t, `\section{#1}`, cmd.Info)

		secs := outline.NewInput(res.Tree).Of(outline.TypeSection)
		require.Equal(t, []string{"Alpha"}, named(res, secs))
	})

	t.Run("bare name form", func(t *testing.T) {
		res := parse(`\newcommand\R{\mathbb{R}}`)
		require.Len(t, res.Commands, 1)
		require.Equal(t, "R", res.Commands[0].Key)
		require.Equal(t, `\mathbb{R}`, res.Commands[0].Info)
	})

	t.Run("default for first argument", func(t *testing.T) {
		res := parse(`\newcommand{\greet}[2][World]{Hello #1 #2}`)
		require.Len(t, res.Commands, 1)
		require.Equal(t, []refs.ParamKind{refs.Optional, refs.Mandatory}, res.Commands[0].Params)
	})

	t.Run("non numeric count", func(t *testing.T) {
		res := parse(`\newcommand{\x}[a]{y}`)
		require.Len(t, messagesContaining(res, "must only contain the number of arguments"), 1)
		require.Empty(t, res.Commands)
	})

	t.Run("missing definition", func(t *testing.T) {
		res := parse(`\newcommand{\x} text`)
		require.Len(t, messagesContaining(res, "No 2nd argument following newcommand"), 1)
	})
}

func TestBibliography(t *testing.T) {
	t.Run("bibtex", func(t *testing.T) {
		res := parse("\\section{S}\n\\bibliographystyle{plain}\n\\bibliography{a, b.bib}\n")
		require.False(t, res.Biblatex)
		require.Equal(t, []string{"a.bib", "b.bib"}, res.Bibs)
		require.Equal(t, "plain", res.BibStyle)
		require.Equal(t, 2, res.Tree.Node(res.Tree.Roots()[0]).EndLine)
	})

	t.Run("biblatex", func(t *testing.T) {
		res := parse("\\usepackage[style=alpha, backend = biber ,sorting=nyt]{biblatex}\n" +
			"\\addbibresource{refs.bib}\n\\bibliography{a,b}\n")
		require.True(t, res.Biblatex)
		require.Equal(t, "biber", res.BiblatexBackend)
		require.Equal(t, []string{"refs.bib", "a,b"}, res.Bibs)
		require.Equal(t, []string{"biblatex"}, res.Packages)
	})
}

func TestCitesAndRefs(t *testing.T) {
	res := parse(`\cite{a, b,c} \cite{*} \citep[p.~3]{d} \pageref{x} \eqref{y}`)
	var keys []string
	for _, c := range res.Cites {
		keys = append(keys, c.Key)
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, keys)
	require.Len(t, res.Refs, 2)
}

func TestEveryReferenceCommandIsRecorded(t *testing.T) {
	for name := range lexer.RefCommands {
		res := parse(`\` + name + `{k}`)
		require.Len(t, res.Refs, 1, name)
		require.Equal(t, "k", res.Refs[0].Key, name)
	}
	for name := range lexer.CiteCommands {
		res := parse(`\` + name + `{k}`)
		require.Len(t, res.Cites, 1, name)
		require.Equal(t, "k", res.Cites[0].Key, name)
	}
}

func TestTasks(t *testing.T) {
	res := parse("% FIXME broken\n% plain comment\ntext % TODO later\n% XXX odd\n")
	require.Len(t, res.Tasks, 3)
	require.Equal(t, parser.PriorityHigh, res.Tasks[0].Priority)
	require.Equal(t, "FIXME broken", res.Tasks[0].Text)
	require.Equal(t, parser.PriorityNormal, res.Tasks[1].Priority)
	require.Equal(t, 3, res.Tasks[1].Line)
	require.Equal(t, parser.PriorityNormal, res.Tasks[2].Priority)
}

func TestMissingParentWarnings(t *testing.T) {
	res := parse("\\subsection{X}\n\\section{S}\n\\paragraph{P}\n")
	require.Len(t, messagesContaining(res, "Subsection X has no preceding section"), 1)
	require.Len(t, messagesContaining(res, "Paragraph P has no preceding subsubsection"), 1)

	quiet := parser.Parse("\\subsection{X}\n", parser.Options{})
	require.Empty(t, quiet.Messages)
}

func TestInputsAndIndex(t *testing.T) {
	res := parse("\\section{A}\n\\input{chap1}\n\\include{chap2}\n\\printindex\n")
	require.Equal(t, []string{"chap1", "chap2"}, res.Inputs)
	sec := res.Tree.Roots()[0]
	kids := res.Tree.Children(sec)
	require.Equal(t, []string{"chap1", "chap2"}, named(res, kids))
	require.Equal(t, outline.TypeInput, res.Tree.Node(kids[0]).Type)
	require.True(t, res.Index)
}

func TestLexerErrorIsOneFatalMessage(t *testing.T) {
	res := parse("\\section{A}\n\\label{x}\n\\section{Intro")
	require.True(t, res.Fatal)
	require.Len(t, res.Messages, 1)
	require.Equal(t, 3, res.Messages[0].Line)
	require.Len(t, res.Labels, 1, "symbols before the failure are kept")
}

func TestSpansAndFile(t *testing.T) {
	src := "\\section{A}\ntext\n\\section{B}\n"
	res := parse(src)
	a := res.Tree.Node(res.Tree.Roots()[0])
	require.Equal(t, "main.tex", a.File)
	require.Equal(t, 0, a.Offset)
	require.Equal(t, "\\section{A}\ntext\n", src[a.Offset:a.Offset+a.Length])
}
