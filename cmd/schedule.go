package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelplan/pulsar/internal/config"
	"github.com/kestrelplan/pulsar/internal/engine"
	"github.com/kestrelplan/pulsar/internal/history"
	"github.com/kestrelplan/pulsar/internal/loader"
)

var saveHistory bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Compute and print a schedule for the task manifest",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&saveHistory, "save", false, "save this run to the history database")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	result, manifestHash, err := scheduleFromManifest(cfg)
	if err != nil {
		return err
	}

	printSchedule(result)

	if saveHistory {
		store, err := history.Open(cmd.Context(), cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()

		runID, err := store.Save(cmd.Context(), manifestHash, result)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved as run #%d\n", runID)
	}
	return nil
}

// scheduleFromManifest loads and resolves the manifest at cfg.ManifestPath
// and runs it through the engine, returning the result and the manifest's
// content hash (used as the history record's change-detection key).
func scheduleFromManifest(cfg config.Config) (*engine.Result, string, error) {
	data, err := os.ReadFile(cfg.ManifestPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading manifest: %w", err)
	}

	m, err := loader.Load(cfg.ManifestPath)
	if err != nil {
		return nil, "", err
	}
	resolved, err := m.Resolve(time.Now())
	if err != nil {
		return nil, "", err
	}

	scheduler := engine.AlgorithmParallelSGS
	if cfg.Scheduler == "critical_path" {
		scheduler = engine.AlgorithmCriticalPath
	}

	result, err := engine.Run(engine.Input{
		Tasks:          resolved.Tasks,
		Completed:      resolved.Completed,
		CurrentDate:    resolved.CurrentDate,
		ResourceConfig: resolved.ResourceConfig,
		Scheduler:      scheduler,
		Scheduling:     cfg.SchedulingConfig(),
		CriticalPath:   cfg.CriticalPathConfig(),
		Rollout:        cfg.RolloutConfig(),
		TelemetryPath:  cfg.TelemetryPath,
	})
	if err != nil {
		return nil, "", err
	}

	sum := sha256.Sum256(data)
	return result, hex.EncodeToString(sum[:]), nil
}

func printSchedule(result *engine.Result) {
	for _, st := range result.Schedule {
		fmt.Printf("%-20s %s .. %s  %v\n", st.TaskID, st.Start.Format("2006-01-02"), st.End.Format("2006-01-02"), st.Resources)
	}
}
