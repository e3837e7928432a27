package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelplan/pulsar/internal/config"
	"github.com/kestrelplan/pulsar/internal/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate the task manifest without scheduling",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	m, err := loader.Load(cfg.ManifestPath)
	if err != nil {
		return err
	}
	resolved, err := m.Resolve(time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d task(s), %d resource(s), %d completed, ok\n",
		cfg.ManifestPath, len(resolved.Tasks), len(resolved.ResourceConfig.ResourceOrder), len(resolved.Completed))
	return nil
}
