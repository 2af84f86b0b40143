package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efterranova/jobson/internal/config"
	"github.com/efterranova/jobson/internal/scraper"
	"github.com/efterranova/jobson/internal/server"
	"github.com/efterranova/jobson/internal/service"
	"github.com/efterranova/jobson/internal/storage"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the viewer web server",
	Long:  `Starts an HTTP server that serves the results viewer and a JSON API for browsing persisted records and triggering harvests.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides WEB_HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides WEB_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("host") {
		settings.WebHost = serveHost
	}
	if cmd.Flags().Changed("port") {
		settings.WebPort = servePort
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logFile, err := setupLogging(settings.LogsDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	repo, err := storage.New(context.Background(), settings)
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %w", err)
	}

	svc := service.New(scraper.New(settings.SessionPath), repo, settings.DataDir)

	return server.New(settings, repo, svc).Start()
}
