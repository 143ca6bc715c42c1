package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags "-X main.version=..." at build time.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tailor_agent version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("tailor_agent version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
