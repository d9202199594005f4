// Package cli wires the batch and service entry points.
package cli

import (
	"github.com/spf13/cobra"

	"shelfguard/internal/config"
)

const version = "1.0.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "shelfguard",
	Short: "Self-checkout loss prevention engine",
	Long: `shelfguard correlates POS transactions, RFID readings, product
recognition, queue telemetry and inventory snapshots from self-checkout
stations, and emits scored fraud, operational and inventory events.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON or YAML)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(config.ResolvePath(cfgFile))
}
