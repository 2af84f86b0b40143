// Package config provides environment-backed settings for the harvester,
// storage backends and web viewer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Roles controlling whether this process is allowed to run harvests.
const (
	RoleFull   = "full"
	RoleViewer = "viewer"
)

// Settings holds everything the process reads from the environment.
// Supabase credentials being present selects the remote backend; otherwise
// results persist to the local sqlite file.
type Settings struct {
	RootDir     string
	DataDir     string
	SessionsDir string
	LogsDir     string

	// SessionPath is where the authenticated session snapshot lives.
	SessionPath string

	SQLitePath    string
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	AppRole string
	WebHost string
	WebPort int
}

// Load reads settings from the environment and creates the working
// directories. Call godotenv.Load first if a .env file should participate.
func Load() (*Settings, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	dataDir := filepath.Join(root, "data")
	sessionsDir := filepath.Join(root, "sessions")
	logsDir := filepath.Join(root, "logs")
	for _, dir := range []string{dataDir, sessionsDir, logsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = filepath.Join(dataDir, "jobson.db")
	}

	port := 5050
	if raw := strings.TrimSpace(os.Getenv("WEB_PORT")); raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("WEB_PORT must be an integer: %w", err)
		}
	}

	s := &Settings{
		RootDir:       root,
		DataDir:       dataDir,
		SessionsDir:   sessionsDir,
		LogsDir:       logsDir,
		SessionPath:   filepath.Join(sessionsDir, "storage_state.json"),
		SQLitePath:    sqlitePath,
		SupabaseURL:   strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey:   strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		SupabaseTable: envOrDefault("SUPABASE_TABLE", "linkedin_results"),
		AppRole:       strings.ToLower(envOrDefault("APP_ROLE", RoleFull)),
		WebHost:       envOrDefault("WEB_HOST", "127.0.0.1"),
		WebPort:       port,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks settings consistency.
func (s *Settings) Validate() error {
	if s.AppRole != RoleFull && s.AppRole != RoleViewer {
		return fmt.Errorf("APP_ROLE must be %q or %q, got %q", RoleFull, RoleViewer, s.AppRole)
	}
	if s.WebPort < 1 || s.WebPort > 65535 {
		return fmt.Errorf("WEB_PORT out of range: %d", s.WebPort)
	}
	if (s.SupabaseURL == "") != (s.SupabaseKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY must be set together")
	}
	return nil
}

// UseSupabase reports whether the remote backend is configured.
func (s *Settings) UseSupabase() bool {
	return s.SupabaseURL != "" && s.SupabaseKey != ""
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
