package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelplan/pulsar/internal/config"
	"github.com/kestrelplan/pulsar/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scheduling runs",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := history.Open(cmd.Context(), cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	runs, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range runs {
		fmt.Fprintf(out, "#%-4d %-12s %s/%s  %d rollout decisions  %s\n",
			r.ID, shortHash(r.ManifestHash), r.Algorithm, r.Strategy, r.RolloutCount, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
