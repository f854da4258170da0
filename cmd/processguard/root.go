package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "processguard",
	Short: "Process supervisor and host telemetry daemon for containers",
	Long: `processguard supervises a set of container-local processes and
reports host and per-process telemetry.

- Process orchestration with dependency ordering
- Health monitoring and auto-restart with crash policies
- Prometheus metrics and OpenTelemetry tracing
- Structured, redacted, rotated per-process logs
- Hot config reload

Examples:
  processguard serve               # start the daemon
  processguard check-config        # validate a config file
  processguard tail nginx           # tail a process's log
  processguard version              # show version`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(tailCmd)
}

// getConfigPath determines the configuration file path: explicit
// --config flag > PROCESSGUARD_CONFIG env var > the package default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envPath := os.Getenv("PROCESSGUARD_CONFIG"); envPath != "" {
		return envPath
	}
	return "/etc/processguard/config.json"
}
