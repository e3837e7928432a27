package cmd

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kestrelplan/pulsar/internal/config"
	"github.com/kestrelplan/pulsar/internal/loader"
	"github.com/kestrelplan/pulsar/internal/watchtui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-schedule on every manifest edit and show live progress",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	updates := make(chan watchtui.Update, 1)
	go watchLoop(cfg, updates)

	p := tea.NewProgram(watchtui.New(updates))
	_, err := p.Run()
	return err
}

// watchLoop runs the initial schedule, then re-schedules on every manifest
// change reported by the loader watcher, pushing each outcome to updates.
func watchLoop(cfg config.Config, updates chan<- watchtui.Update) {
	reschedule := func() {
		result, _, err := scheduleFromManifest(cfg)
		updates <- watchtui.Update{Result: result, Err: err}
	}

	reschedule()

	w, err := loader.NewWatcher(cfg.ManifestPath)
	if err != nil {
		updates <- watchtui.Update{Err: err}
		return
	}
	if err := w.Start(filepath.Dir(cfg.ManifestPath)); err != nil {
		updates <- watchtui.Update{Err: err}
		return
	}
	defer w.Stop()

	for range w.Changed {
		reschedule()
	}
}
