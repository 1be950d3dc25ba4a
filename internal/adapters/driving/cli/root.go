// Package cli implements the codexai command line with cobra.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
	"github.com/custodia-labs/codexai/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var verbose bool

// SourceOpener resolves an ingest target (directory, zip archive or
// github:owner/repo) to a reader.
type SourceOpener func(ctx context.Context, target string) (driven.SourceReader, error)

// WatchFunc starts watching a directory and delivers batches of changed
// paths until ctx is done.
type WatchFunc func(ctx context.Context, root string) (<-chan []string, error)

// CheckFunc pings the configured providers.
type CheckFunc func(ctx context.Context) error

// Services holds everything the commands call into.
type Services struct {
	Settings      driving.SettingsService
	Ingestion     driving.IngestionService
	Documentation driving.DocumentationService
	OpenSource    SourceOpener
	Watch         WatchFunc
	Check         CheckFunc
}

// Wired services, set by SetServices from the composition root.
var (
	settingsService      driving.SettingsService
	ingestionService     driving.IngestionService
	documentationService driving.DocumentationService
	openSource           SourceOpener
	watchSource          WatchFunc
	checkProviders       CheckFunc
)

var rootCmd = &cobra.Command{
	Use:   "codexai",
	Short: "Generate documentation for a codebase from its own context",
	Long: `codexai ingests a codebase, indexes it as embedded chunks, and writes
documentation for individual files using related code from the same
project as context.

Typical flow:
  codexai config provider embedding ollama
  codexai config provider generation anthropic --api-key ...
  codexai ingest ./my-project
  codexai generate <project-id> src/server.py`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices wires the services used by the commands.
func SetServices(s *Services) {
	settingsService = s.Settings
	ingestionService = s.Ingestion
	documentationService = s.Documentation
	openSource = s.OpenSource
	watchSource = s.Watch
	checkProviders = s.Check
}

// SetVersion overrides the version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
