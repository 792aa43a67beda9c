package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"texlipse/internal/config"
	"texlipse/internal/manager"
	"texlipse/internal/project"
	"texlipse/internal/resolver"
	"texlipse/internal/scanner"
)

const configName = "texlipse.json"

var log = commonlog.GetLogger("texlipse.cli")

var (
	rootDir    string
	configPath string
	mainFile   string
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:   "texlipse",
	Short: "Inspect a LaTeX project from the command line",
	Long: `texlipse parses a LaTeX project the way the language server does: it
follows \input and \include from the main file, merges the outline and
indexes labels, bibliography keys and user commands.

Settings are read from texlipse.json in the project root when present.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commonlog.Configure(verbosity, nil)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("texlipse %s\n", Version))
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "C", ".", "project root")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default <root>/"+configName+")")
	rootCmd.PersistentFlags().StringVarP(&mainFile, "main", "m", "", "main file relative to the root")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log more (repeat for debug output)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// workspace is a loaded project plus what it was loaded with.
type workspace struct {
	cfg     config.Config
	res     *resolver.Resolver
	docs    *manager.DocumentManager
	project *project.Project
	snap    *project.Snapshot
}

func loadConfig(root string) (config.Config, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(root, configName)
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && configPath == "" {
		return config.Default(), nil
	}
	if err != nil {
		return config.Config{}, err
	}
	defer f.Close()
	cfg, err := config.LoadFromJSON(f)
	if err != nil {
		return config.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// openWorkspace loads the project below --root. With orphans set, sources
// the main file does not include are parsed and indexed as well.
func openWorkspace(ctx context.Context, orphans bool) (*workspace, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if mainFile != "" {
		cfg.MainFile = mainFile
	}

	w := &workspace{cfg: cfg, res: resolver.New(root, cfg.MainFile)}
	w.docs = manager.NewDocumentManager(w.res.Root())
	w.project = project.New(w.docs, w.res, cfg.ProjectOptions())
	if w.snap, err = w.project.Load(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.MainFile, err)
	}
	if !orphans {
		return w, nil
	}

	inv, err := scanner.Walk(ctx, w.res.Root(), cfg)
	if err != nil {
		return nil, err
	}
	for _, f := range inv.Sources {
		if w.snap.Contains(f.Path) {
			continue
		}
		if _, err := w.refresh(ctx, f.Path); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// refresh reads name from disk and folds it into the project.
func (w *workspace) refresh(ctx context.Context, name string) (*project.Snapshot, error) {
	var (
		snap *project.Snapshot
		err  error
	)
	if w.cfg.IsBibliography(name) || w.cfg.IsAux(name) {
		snap, err = w.project.ReloadBibliography(ctx, name)
	} else {
		var text string
		if text, err = w.docs.Text(name); err != nil {
			return nil, err
		}
		snap, err = w.project.Update(ctx, name, text)
	}
	if err != nil {
		return nil, err
	}
	w.snap = snap
	return snap, nil
}
