package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"texlipse/internal/graph"
	"texlipse/internal/scanner"
	"texlipse/internal/scheduler"
)

var (
	serveAddr     string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live outline view in the browser",
	Long: `Serve the merged outline on a local web page and keep it current: the
project directory is polled and changed files are parsed again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w, err := openWorkspace(ctx, false)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = w.cfg.GraphAddr
		}
		view := graph.New()
		url, err := view.Listen(addr)
		if err != nil {
			return err
		}
		defer view.Close()
		view.Publish(graph.FromInput(w.snap.Outline))
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dimStyle.Render("Outline at"), titleStyle.Render(url))

		wt, err := newWatcher(ctx, w)
		if err != nil {
			return err
		}
		sched := scheduler.NewScheduler(8)
		sched.RunScheduler()
		defer sched.StopScheduler()
		sched.SchedulePeriodicTask(serveInterval, scheduler.Task{Name: "poll project", Execute: func(ctx context.Context) error {
			changed, err := wt.poll(ctx)
			if err != nil || !changed {
				return err
			}
			return view.Publish(graph.FromInput(w.snap.Outline))
		}})

		<-ctx.Done()
		return nil
	},
}

// watcher notices files whose modification time changed between polls.
type watcher struct {
	w    *workspace
	seen map[string]time.Time
}

func newWatcher(ctx context.Context, w *workspace) (*watcher, error) {
	wt := &watcher{w: w, seen: make(map[string]time.Time)}
	files, err := wt.files(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		wt.seen[f.Path] = f.ModTime
	}
	return wt, nil
}

func (wt *watcher) files(ctx context.Context) ([]scanner.File, error) {
	inv, err := scanner.Walk(ctx, wt.w.res.Root(), wt.w.cfg)
	if err != nil {
		return nil, err
	}
	return slices.Concat(inv.Sources, inv.Bibliographies, inv.Aux), nil
}

// poll folds every new or modified file into the project and reports
// whether any was accepted.
func (wt *watcher) poll(ctx context.Context) (bool, error) {
	files, err := wt.files(ctx)
	if err != nil {
		return false, err
	}
	changed := false
	for _, f := range files {
		if last, ok := wt.seen[f.Path]; ok && last.Equal(f.ModTime) {
			continue
		}
		wt.seen[f.Path] = f.ModTime
		log.Infof("%s changed", f.Path)
		if _, err := wt.w.refresh(ctx, f.Path); err != nil {
			if ctx.Err() != nil {
				return changed, ctx.Err()
			}
			log.Warningf("%s: %v", f.Path, err)
			continue
		}
		changed = true
	}
	return changed, nil
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (default graph_addr from the settings)")
	serveCmd.Flags().DurationVarP(&serveInterval, "interval", "i", time.Second, "How often to look for changed files")
	rootCmd.AddCommand(serveCmd)
}
