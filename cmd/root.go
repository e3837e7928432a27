package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pulsar",
	Short: "Deterministic resource-constrained project scheduler",
	Long:  "pulsar schedules a project's tasks against shared resources, deadlines, and priorities, producing a deterministic day-by-day plan.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .pulsar.yaml)")
	rootCmd.PersistentFlags().String("manifest", "pulsar.toml", "task manifest path")
	rootCmd.PersistentFlags().String("scheduler", "sgs", "forward scheduler: sgs or critical_path")
	rootCmd.PersistentFlags().String("strategy", "priority_first", "dispatch strategy: priority_first, cr_first, weighted, atc")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("telemetry", "", "append a JSONL decision trace to this file (default: disabled)")

	viper.BindPFlag("manifest_path", rootCmd.PersistentFlags().Lookup("manifest"))
	viper.BindPFlag("scheduler", rootCmd.PersistentFlags().Lookup("scheduler"))
	viper.BindPFlag("strategy", rootCmd.PersistentFlags().Lookup("strategy"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("telemetry_path", rootCmd.PersistentFlags().Lookup("telemetry"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".pulsar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("PULSAR")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults and flags/env.
	_ = viper.ReadInConfig()
}
