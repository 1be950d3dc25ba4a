package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

var (
	generateKind   string
	generateTarget string
	generateTests  bool
	generateDeps   bool
	generateBudget int
	generateTopK   int
	generateOut    string
	generateJSON   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <project-id> <file>",
	Short: "Generate documentation for a file",
	Long: `Generates documentation for one file of an indexed project. Related code
from the same project is retrieved and included as context.

Kinds:
  reference - API reference for the file's functions and classes (default)
  tutorial  - walkthrough of how to use the file
  overview  - summary of the file's role in the project

Every run is stored; see 'codexai docs history'.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateKind, "kind", "k", string(domain.DocReference), "documentation kind: reference, tutorial or overview")
	generateCmd.Flags().StringVar(&generateTarget, "target", "", "document only this function or class")
	generateCmd.Flags().BoolVar(&generateTests, "tests", false, "include example tests")
	generateCmd.Flags().BoolVar(&generateDeps, "deps", false, "describe dependencies")
	generateCmd.Flags().IntVar(&generateBudget, "budget", 0, "context token budget (0 = configured default)")
	generateCmd.Flags().IntVar(&generateTopK, "top-k", 0, "candidate chunks to retrieve (0 = configured default)")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "write the documentation to this file")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "output the full record as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if documentationService == nil {
		return errors.New("documentation service not configured")
	}
	ctx := commandContext(cmd)

	kind := domain.DocKind(strings.ToLower(generateKind))
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q (use reference, tutorial or overview)", domain.ErrInvalidInput, generateKind)
	}

	projectID, filePath := args[0], args[1]
	doc, err := documentationService.Generate(ctx, driving.GenerateRequest{
		ProjectID:   projectID,
		FilePath:    filePath,
		Kind:        kind,
		Target:      generateTarget,
		Options:     domain.DocOptions{IncludeTests: generateTests, IncludeDependencies: generateDeps},
		TokenBudget: generateBudget,
		TopK:        generateTopK,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if hint := notFoundHint(ctx, projectID, filePath); hint != "" {
				return fmt.Errorf("generate failed: %w (%s)", err, hint)
			}
		}
		return fmt.Errorf("generate failed: %w", err)
	}

	return printDoc(cmd, doc, generateJSON, generateOut)
}

// printDoc writes a record as JSON, to a file, or as plain Markdown.
func printDoc(cmd *cobra.Command, doc *domain.DocumentationRequest, asJSON bool, out string) error {
	if asJSON {
		return outputJSON(cmd, doc)
	}
	if out != "" {
		if err := os.WriteFile(out, []byte(doc.Content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		cmd.Printf("Wrote %s\n", out)
	} else {
		cmd.Println(strings.TrimRight(doc.Content, "\n"))
	}

	note := ""
	if doc.TargetTruncated {
		note = ", file truncated to fit"
	}
	cmd.PrintErrf("[%s %s, %s, %d context chunks, %d+%d tokens%s]\n",
		doc.Kind, doc.ID, doc.Model, len(doc.ContextChunkIDs), doc.PromptTokens, doc.CompletionTokens, note)
	return nil
}
