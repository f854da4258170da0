package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/processguard/processguard/internal/config"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate a configuration file",
	Long:  `Parse a processguard configuration file and report errors, warnings, and suggestions.`,
	Run:   runCheckConfig,
}

func init() {
	checkConfigCmd.Flags().Bool("strict", false, "Fail on warnings, not just errors")
	checkConfigCmd.Flags().Bool("json", false, "Output the validation report as JSON")
	checkConfigCmd.Flags().Bool("quiet", false, "Show only the summary line")
}

func runCheckConfig(cmd *cobra.Command, args []string) {
	strict, _ := cmd.Flags().GetBool("strict")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfgPath := getConfigPath()

	cfg, err := config.ParseFile(cfgPath)
	if err != nil {
		if jsonOutput {
			enc, _ := json.Marshal(map[string]string{"error": err.Error()})
			fmt.Println(string(enc))
		} else {
			fmt.Fprintf(os.Stderr, "configuration load failed: %v\n", err)
		}
		os.Exit(1)
	}

	result, validateErr := cfg.ValidateComprehensive()

	switch {
	case jsonOutput:
		data := config.FormatValidationJSON(result)
		data["config_path"] = cfgPath
		data["process_count"] = len(cfg.Processes)
		enc, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(enc))
	case quiet:
		if result.TotalIssues() == 0 {
			fmt.Println("configuration is valid")
		} else {
			fmt.Println(config.FormatValidationSummary(result))
		}
	default:
		if result.TotalIssues() > 0 {
			fmt.Print(config.FormatValidationReport(result))
		}
		fmt.Printf("\nconfiguration summary:\n")
		fmt.Printf("  path: %s\n", cfgPath)
		fmt.Printf("  processes: %d\n", len(cfg.Processes))
		fmt.Printf("  log level: %s\n", cfg.LogLevel)
		fmt.Printf("  monitor interval: %ds\n", cfg.MonitorInterval)
		if result.TotalIssues() == 0 {
			fmt.Println("\nconfiguration ready for use")
		}
	}

	if validateErr != nil {
		os.Exit(1)
	}
	if strict && result.HasWarnings() {
		if !jsonOutput {
			fmt.Println("\nvalidation failed in strict mode (warnings present)")
		}
		os.Exit(1)
	}
}
