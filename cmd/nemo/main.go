// Package main implements the nemo CLI: materialize a rule program
// described by a YAML manifest, or watch its rule files and re-run on
// change.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/aidan-bailey/nemo/internal/logging"
)

var version = "dev"

var (
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "nemo",
	Short:        "nemo is an in-memory Datalog materialization engine",
	Long:         "nemo materializes the closure of a rule program with existential heads,\nnegation, arithmetic and aggregation over columnar trie storage.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			return logging.InitDevelopment(zapcore.DebugLevel)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nemo %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
