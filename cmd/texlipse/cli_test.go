package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var fixture = map[string]string{
	"thesis.tex": "\\documentclass{book}\n\\newcommand{\\N}{\\mathbb{N}}\n\\begin{document}\n" +
		"\\chapter{Intro}\\label{ch:intro}\n\\input{background}\nSee \\ref{ch:gone}.\n\\end{document}\n",
	"background.tex": "\\section{Background}\n% FIXME cite sources\n",
	"draft.tex":      "\\label{draft}\n\\begin{itemize}\n",
	"texlipse.json":  `{"main_file": "thesis.tex"}`,
}

func run(t *testing.T, args ...string) (string, error) {
	root := t.TempDir()
	for name, text := range fixture {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(text), 0o644))
	}
	t.Cleanup(func() { rootDir, configPath, mainFile = ".", "", "" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--root", root}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOutlineCommand(t *testing.T) {
	out, err := run(t, "outline", "--labels")
	require.NoError(t, err)
	require.Contains(t, out, "Intro")
	require.Contains(t, out, "  Background")
	require.Contains(t, out, "background.tex:1")
	require.Contains(t, out, "ch:intro")

	out, err = run(t, "outline", "--labels=false", "--depth", "1")
	require.NoError(t, err)
	require.NotContains(t, out, "Background")
	require.NotContains(t, out, "ch:intro")
}

func TestCheckCommand(t *testing.T) {
	out, err := run(t, "check", "--tasks")
	require.Error(t, err, "draft.tex has an unclosed environment")
	require.Contains(t, out, "Label ch:gone is undefined")
	require.Contains(t, out, "FIXME cite sources")
	require.Contains(t, out, "draft.tex")
}

func TestSymbolsCommand(t *testing.T) {
	out, err := run(t, "symbols", "--kind", "labels")
	require.NoError(t, err)
	require.Contains(t, out, "labels (2)")
	require.Contains(t, out, "draft draft.tex:1")

	out, err = run(t, "symbols", "--kind", "commands")
	require.NoError(t, err)
	require.Contains(t, out, "\\N")

	_, err = run(t, "symbols", "--kind", "bogus")
	require.Error(t, err)
}

func TestMissingMainFile(t *testing.T) {
	_, err := run(t, "--main", "nope.tex", "outline")
	require.Error(t, err)
}
