package scanner_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"texlipse/internal/config"
	"texlipse/internal/scanner"
)

func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, text := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	return root
}

func paths(files []scanner.File) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestWalk(t *testing.T) {
	root := tree(t, map[string]string{
		"main.tex":          "\\input{ch/one}",
		"ch/one.tex":        "\\section{One}",
		"refs.bib":          "@book{k,}",
		"main.aux":          "",
		"figure.png":        "",
		".git/HEAD.tex":     "",
		"_minted/cache.tex": "",
	})

	inv, err := scanner.Walk(context.Background(), root, config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"ch/one.tex", "main.tex"}, paths(inv.Sources))
	require.Equal(t, []string{"refs.bib"}, paths(inv.Bibliographies))
	require.Equal(t, []string{"main.aux"}, paths(inv.Aux))
	require.Equal(t, 4, inv.Len())
	require.Equal(t, int64(len("\\section{One}")), inv.Sources[0].Size)
}

func TestWalkCancelled(t *testing.T) {
	root := tree(t, map[string]string{"main.tex": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scanner.Walk(ctx, root, config.Default())
	require.ErrorIs(t, err, context.Canceled)
}

func TestScan(t *testing.T) {
	root := tree(t, map[string]string{
		"main.tex":      "main",
		"sub/a.tex":     "a",
		"sub/b.bib":     "b",
		".hidden/x.tex": "x",
	})

	got := map[string]string{}
	err := scanner.Scan(context.Background(), root,
		func(rel string, info fs.FileInfo) bool { return filepath.Ext(rel) != ".tex" },
		func(rel string, data []byte) { got[rel] = string(data) },
	)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"main.tex": "main", "sub/a.tex": "a"}, got)
}

func TestSkipDir(t *testing.T) {
	require.True(t, scanner.SkipDir("proj/.git"))
	require.True(t, scanner.SkipDir("_minted"))
	require.False(t, scanner.SkipDir("."))
	require.False(t, scanner.SkipDir("chapters"))
}
