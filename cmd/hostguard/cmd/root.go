package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "hostguard",
	Short: "hostguard host-based runtime security monitor",
	Long:  `hostguard observes socket lifecycle activity through kernel probes and evaluates every event against user-authored detection rules.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}
