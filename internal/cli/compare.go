package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/stormbench/internal/benchmark/output"
	"github.com/wesleyorama2/stormbench/internal/benchmark/report"
)

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare BASELINE.json CURRENT.json",
		Short: "Compare two JSON result documents",
		Long: `Print the change in throughput, latency percentiles and success rate
between two runs written with --json_file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmp, err := report.CompareFiles(args[0], args[1])
			if err != nil {
				return err
			}

			console := output.NewConsole(output.ConsoleConfig{
				Writer:  cmd.OutOrStdout(),
				NoColor: noColor(cmd),
			})
			console.PrintComparison(cmp)
			return nil
		},
	}
}
