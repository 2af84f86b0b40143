// Package main provides the entry point for the jobson harvest CLI and viewer server.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobson",
	Short: "LinkedIn job and feed harvester",
	Long:  "jobson collects job postings and feed posts from LinkedIn searches, deduplicates them and persists them to SQLite or Supabase, with CSV exports per run.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging tees the standard logger into a per-day file under the
// logs directory.
func setupLogging(logsDir string) (*os.File, error) {
	name := filepath.Join(logsDir, fmt.Sprintf("jobson_%s.log", time.Now().UTC().Format("20060102")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}
