package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efterranova/jobson/internal/config"
	"github.com/efterranova/jobson/internal/scraper"
	"github.com/efterranova/jobson/internal/service"
	"github.com/efterranova/jobson/internal/storage"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one harvest and persist the results",
	Long:  "Runs a LinkedIn search for the given keywords, extracts up to the requested number of records, upserts them into the configured backend and writes a CSV export.",
	RunE:  runSearch,
}

var (
	searchMode     string
	searchKeywords string
	searchLimit    int
	searchDays     int
)

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", service.ModeMixed, "Harvest mode: jobs, feed or mixed")
	searchCmd.Flags().StringVarP(&searchKeywords, "keywords", "k", "", "Search keywords (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "Maximum records to collect")
	searchCmd.Flags().IntVarP(&searchDays, "days", "d", 0, "Recency window in days (1, 7 or 30; 0 means no filter)")

	if err := searchCmd.MarkFlagRequired("keywords"); err != nil {
		panic(fmt.Sprintf("failed to mark keywords flag as required: %v", err))
	}

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile, err := setupLogging(settings.LogsDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx := context.Background()

	repo, err := storage.New(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %w", err)
	}

	svc := service.New(scraper.New(settings.SessionPath), repo, settings.DataDir)

	req := service.Request{
		Mode:     searchMode,
		Keywords: searchKeywords,
		Limit:    searchLimit,
	}
	if cmd.Flags().Changed("days") && searchDays > 0 {
		req.Days = &searchDays
	}

	summary, err := svc.RunSearch(ctx, req)
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
