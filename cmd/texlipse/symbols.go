package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"texlipse/internal/refs"
)

var symbolsKind string

var symbolsCmd = &cobra.Command{
	Use:   "symbols [prefix]",
	Short: "List labels, bibliography keys and user commands",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		w, err := openWorkspace(cmd.Context(), true)
		if err != nil {
			return err
		}
		idx := w.project.Index()
		out := cmd.OutOrStdout()
		switch symbolsKind {
		case "labels":
			FormatEntries(out, "labels", idx.Labels(prefix))
		case "bib":
			FormatEntries(out, "bibliography", idx.BibKeys(prefix))
		case "commands":
			FormatCommands(out, userCommands(idx, prefix))
		case "all":
			FormatEntries(out, "labels", idx.Labels(prefix))
			FormatEntries(out, "bibliography", idx.BibKeys(prefix))
			FormatCommands(out, userCommands(idx, prefix))
		default:
			return fmt.Errorf("unknown kind %q", symbolsKind)
		}
		return nil
	},
}

// userCommands returns the commands defined in project files, all context
// bands together.
func userCommands(idx *refs.Manager, prefix string) []refs.CommandEntry {
	var out []refs.CommandEntry
	for _, ctx := range []refs.Context{refs.ContextNormal, refs.ContextPreamble, refs.ContextMath} {
		for _, c := range idx.Commands(ctx, prefix) {
			if c.File != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

func init() {
	symbolsCmd.Flags().StringVarP(&symbolsKind, "kind", "k", "all", "One of labels, bib, commands or all")
	rootCmd.AddCommand(symbolsCmd)
}
