// Command codexai ingests codebases and generates documentation for their
// files from retrieved project context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/codexai/internal/adapters/driven/ai"
	"github.com/custodia-labs/codexai/internal/adapters/driven/config/file"
	"github.com/custodia-labs/codexai/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/codexai/internal/adapters/driving/cli"
	"github.com/custodia-labs/codexai/internal/chunker"
	"github.com/custodia-labs/codexai/internal/connectors/archive"
	"github.com/custodia-labs/codexai/internal/connectors/filesystem"
	"github.com/custodia-labs/codexai/internal/connectors/github"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/services"
	"github.com/custodia-labs/codexai/internal/logger"
	"github.com/custodia-labs/codexai/internal/parsers"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "codexai: %v\n", err)
		return 1
	}
	defer app.close()

	cli.SetVersion(version)
	cli.SetServices(app.services)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

type application struct {
	services *cli.Services
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// homeDir returns CODEXAI_HOME, or ~/.codexai.
func homeDir() (string, error) {
	if dir := os.Getenv("CODEXAI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".codexai"), nil
}

// wire builds every adapter and service from the stored settings.
func wire() (*application, error) {
	root, err := homeDir()
	if err != nil {
		return nil, err
	}
	app := &application{}

	configStore, err := file.NewConfigStore(root)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(root, "data"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, func() { _ = store.Close() })

	providers, err := ai.Build(settings, store.VectorIndex())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("build providers: %w", err)
	}
	app.closers = append(app.closers, providers.Close)

	prompts, err := file.NewPromptStore(filepath.Join(root, "prompts"))
	if err != nil {
		app.close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	chunks := chunker.New(
		chunker.WithChunkTokens(settings.Chunking.ChunkTokens),
		chunker.WithOverlapTokens(settings.Chunking.OverlapTokens),
		chunker.WithParsers(parsers.NewDefaultRegistry()),
	)

	batcher := services.NewEmbeddingBatcher(providers.Embedding, settings.Ingestion.BatchSize,
		settings.Retry, settings.Embedding.Timeout)
	ingestion := services.NewIngestionOrchestrator(store.ProjectStore(), store.FileStore(),
		providers.Index, chunks, batcher, settings.Ingestion.Workers,
		services.WithIndexFingerprint(providers.IndexFingerprint(settings.VectorStore, settings.Embedding)))
	retriever := services.NewRetriever(providers.Embedding, providers.Index, chunks,
		settings.Retrieval, settings.Retry, settings.Embedding.Timeout)
	builder := services.NewPromptBuilder(prompts, settings.Prompt)
	documentation := services.NewDocumentationService(store.ProjectStore(), store.FileStore(),
		store.DocumentationStore(), retriever, builder, providers.Generation,
		services.DocumentationConfig{
			Prompt:  settings.Prompt,
			Retry:   settings.Retry,
			Timeout: settings.Generation.Timeout,
		})

	logger.Debug("store %s, vector backend %s", store.Path(), settings.VectorStore.Backend)

	app.services = &cli.Services{
		Settings:      settingsService,
		Ingestion:     ingestion,
		Documentation: documentation,
		OpenSource:    sourceOpener(settings),
		Watch:         watcher(settings),
		Check:         checker(settingsService),
	}
	return app, nil
}

// sourceOpener picks a reader by the shape of the target: a GitHub
// reference, a .zip archive or a local directory.
func sourceOpener(settings *domain.AppSettings) cli.SourceOpener {
	maxBytes := settings.Ingestion.MaxFileBytes
	ignore := settings.Sources.Ignore

	return func(ctx context.Context, target string) (driven.SourceReader, error) {
		if strings.HasPrefix(target, "github:") || strings.HasPrefix(target, "https://github.com/") {
			repo, err := github.ParseRepo(target)
			if err != nil {
				return nil, err
			}
			client := github.NewClient(ctx, settings.Sources.GitHubToken, settings.Sources.GitHubRequestsPerSecond)
			return github.New(client, repo, maxBytes, ignore...), nil
		}

		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.EqualFold(filepath.Ext(target), ".zip") {
				return archive.New(target, maxBytes, ignore...), nil
			}
			return nil, fmt.Errorf("%w: %s is neither a directory nor a .zip archive", domain.ErrInvalidInput, target)
		}
		return filesystem.New(target, filesystem.Options{MaxFileBytes: maxBytes, Ignore: ignore}), nil
	}
}

func watcher(settings *domain.AppSettings) cli.WatchFunc {
	opts := filesystem.Options{MaxFileBytes: settings.Ingestion.MaxFileBytes, Ignore: settings.Sources.Ignore}
	return func(ctx context.Context, root string) (<-chan []string, error) {
		return filesystem.NewWatcher(root, opts, filesystem.DefaultDebounce).Watch(ctx)
	}
}

// checker pings the providers as currently stored, so a provider saved
// earlier in the same command is the one checked.
func checker(settingsService *services.SettingsService) cli.CheckFunc {
	return func(ctx context.Context) error {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		embedding, err := ai.CreateEmbeddingService(settings.Embedding)
		if err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		generation, err := ai.CreateGenerationService(settings.Generation)
		if err != nil {
			if embedding != nil {
				_ = embedding.Close()
			}
			return fmt.Errorf("generation: %w", err)
		}
		if embedding == nil && generation == nil {
			return errors.New("no provider configured")
		}

		var errs []error
		if embedding != nil {
			defer embedding.Close()
			if err := ai.Validate(ctx, embedding); err != nil {
				errs = append(errs, fmt.Errorf("embedding: %w", err))
			}
		}
		if generation != nil {
			defer generation.Close()
			if err := ai.Validate(ctx, generation); err != nil {
				errs = append(errs, fmt.Errorf("generation: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
