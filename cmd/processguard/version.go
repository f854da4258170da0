package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version number for processguard`,
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Println(version)
		} else {
			fmt.Printf("processguard v%s\n", version)
			fmt.Println("Process supervisor and host telemetry daemon for containers")
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
}
