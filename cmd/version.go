package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden via -ldflags at release build time; local builds
// report "dev".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pulsar version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
