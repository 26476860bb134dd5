// Package cli implements the stormbench command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds a fresh command tree. Tests use their own tree so that
// flag state does not leak between them.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "stormbench",
		Short:   "Load generator for object storage services",
		Version: version,
		Long: `stormbench drives read, random-read and write operations against an
object storage service over gRPC or S3 and reports throughput and latency
percentiles. Connection reuse over gRPC is controlled by a pool policy:
shared, per-worker, per-call or a fixed round-robin pool.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCompareCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command. This is called by main.Main().
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "stormbench %s\n", version)
}

func noColor(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("no-color")
	return v
}
