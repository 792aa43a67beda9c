package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkTasks bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report parse problems and unresolved references",
	Long: `Report structural problems, include failures, undefined labels and
unknown citation keys for every source file, including files the main file
does not include. Exits with a non-zero status when errors were found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(cmd.Context(), true)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		c := FormatDiagnostics(out, w.snap, checkTasks)
		FormatSummary(out, w.snap, c)
		if c.errors > 0 {
			return fmt.Errorf("%d errors", c.errors)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVarP(&checkTasks, "tasks", "t", false, "Also list TODO, FIXME and XXX markers")
	rootCmd.AddCommand(checkCmd)
}
