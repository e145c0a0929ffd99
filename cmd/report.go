package cmd

import (
	"os"

	"github.com/mfellner/squeezeoff/internal/report"
	"github.com/spf13/cobra"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [output-dir]",
		Short: "Re-render a stored summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir := "outputs"
			if len(args) > 0 {
				outDir = args[0]
			}
			return report.Generate(outDir, flagFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
