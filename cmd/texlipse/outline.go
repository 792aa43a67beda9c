package main

import (
	"github.com/spf13/cobra"
)

var (
	outlineDepth  int
	outlineLabels bool
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Print the merged outline of the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(cmd.Context(), false)
		if err != nil {
			return err
		}
		FormatOutline(cmd.OutOrStdout(), w.snap.Outline, outlineDepth, outlineLabels)
		return nil
	},
}

func init() {
	outlineCmd.Flags().IntVarP(&outlineDepth, "depth", "d", 0, "Maximum depth to print (0 = unlimited)")
	outlineCmd.Flags().BoolVarP(&outlineLabels, "labels", "l", false, "Include labels")
	rootCmd.AddCommand(outlineCmd)
}
