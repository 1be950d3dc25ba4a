package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

var (
	providerModel  string
	providerAPIKey string
	providerCheck  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change codexai configuration.

Values are stored in the config file; API keys fall back to OPENAI_API_KEY,
ANTHROPIC_API_KEY, QDRANT_API_KEY and GITHUB_TOKEN when unset.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Set one configuration key. Run 'codexai config keys' for the list.
List values such as sources.ignore are comma separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configProviderCmd = &cobra.Command{
	Use:   "provider <embedding|generation> <ollama|openai|anthropic>",
	Short: "Configure the embedding or generation provider",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigProvider,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive provider setup",
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

func init() {
	configProviderCmd.Flags().StringVarP(&providerModel, "model", "m", "", "model name (default: provider default)")
	configProviderCmd.Flags().StringVar(&providerAPIKey, "api-key", "", "API key for cloud providers")
	configProviderCmd.Flags().BoolVar(&providerCheck, "check", false, "ping the provider after saving")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configProviderCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	printProvider(cmd, "Embedding", s.Embedding)
	printProvider(cmd, "Generation", s.Generation)

	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", s.VectorStore.Backend)
	if s.VectorStore.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  URL: %s\n", s.VectorStore.QdrantURL)
		cmd.Printf("  Collection: %s\n", s.VectorStore.QdrantCollection)
	}
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Chunk tokens: %d (overlap %d)\n", s.Chunking.ChunkTokens, s.Chunking.OverlapTokens)
	cmd.Printf("  Workers: %d, batch size: %d\n", s.Ingestion.Workers, s.Ingestion.BatchSize)
	cmd.Printf("  Max file size: %d bytes\n", s.Ingestion.MaxFileBytes)
	if len(s.Sources.Ignore) > 0 {
		cmd.Printf("  Extra ignores: %s\n", strings.Join(s.Sources.Ignore, ", "))
	}
	if s.Sources.GitHubToken != "" {
		cmd.Printf("  GitHub token: %s\n", maskAPIKey(s.Sources.GitHubToken))
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Token budget: %d, top-k: %d, lexical weight: %.2f\n",
		s.Retrieval.TokenBudget, s.Retrieval.TopK, s.Retrieval.LexicalWeight)
	cmd.Println()

	cmd.Println("[Prompt]")
	cmd.Printf("  Target allowance: %d, instruction allowance: %d\n",
		s.Prompt.TargetAllowance, s.Prompt.InstructionAllowance)
	cmd.Printf("  Max tokens: %d, temperature: %.2f\n", s.Prompt.MaxTokens, s.Prompt.Temperature)
	cmd.Println()

	cmd.Println("[Retry]")
	cmd.Printf("  %d retries, %s base delay x%.1f, capped at %s\n",
		s.Retry.MaxRetries, s.Retry.BaseDelay, s.Retry.Multiplier, s.Retry.MaxDelay)
	return nil
}

func printProvider(cmd *cobra.Command, title string, p domain.ProviderSettings) {
	cmd.Printf("[%s]\n", title)
	if !p.Provider.IsValid() {
		cmd.Println("  Status: not configured")
		cmd.Println()
		return
	}
	cmd.Printf("  Provider: %s\n", p.Provider.Description())
	cmd.Printf("  Model: %s\n", p.Model)
	if p.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", p.BaseURL)
	}
	if p.Provider.RequiresAPIKey() {
		if p.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(p.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !p.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s updated\n", args[0])
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigProvider(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	role, provider := args[0], domain.AIProvider(strings.ToLower(args[1]))
	if err := setProvider(role, provider, providerModel, providerAPIKey); err != nil {
		return err
	}
	cmd.Printf("%s provider set to %s\n", role, provider.Description())

	if providerCheck {
		return checkConfiguration(cmd)
	}
	return nil
}

func setProvider(role string, provider domain.AIProvider, model, apiKey string) error {
	switch role {
	case "embedding":
		if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
			return fmt.Errorf("failed to configure embedding provider: %w", err)
		}
	case "generation":
		if err := settingsService.SetGenerationProvider(provider, model, apiKey); err != nil {
			return fmt.Errorf("failed to configure generation provider: %w", err)
		}
	default:
		return fmt.Errorf("%w: role must be embedding or generation, got %q", domain.ErrInvalidInput, role)
	}
	return nil
}

// checkConfiguration pings the configured providers.
func checkConfiguration(cmd *cobra.Command) error {
	if checkProviders == nil {
		return errors.New("provider check not configured")
	}
	cmd.Print("Validating configuration... ")
	if err := checkProviders(commandContext(cmd)); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("codexai setup")
	cmd.Println("=============")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding provider")
	if err := configureProvider(cmd, reader, "embedding", domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels()); err != nil {
		return err
	}
	cmd.Println("Step 2: Generation provider")
	if err := configureProvider(cmd, reader, "generation", domain.AllGenerationProviders(), domain.DefaultGenerationModels()); err != nil {
		return err
	}

	if checkProviders != nil {
		return checkConfiguration(cmd)
	}
	return nil
}

func configureProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	role string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) error {
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	if err := setProvider(role, selected, model, apiKey); err != nil {
		return err
	}
	cmd.Printf("%s provider configured: %s (%s)\n\n", role, selected.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
