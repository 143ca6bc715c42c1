// Package main provides the entry point for the HireKit resume tailoring service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tailor_agent",
	Short: "HireKit resume tailoring service",
	Long:  "HireKit tailors resumes to specific job postings: it fetches the posting, parses the resume, rewrites it for ATS compatibility and reports before/after scores.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
