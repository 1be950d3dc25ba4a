package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	docsJSON bool
	docsOut  string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Read stored documentation",
	Long:  `Show generated documentation records. Regenerating never overwrites; every run is kept.`,
}

var docsGetCmd = &cobra.Command{
	Use:   "get <doc-id>",
	Short: "Show one documentation record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsGet,
}

var docsLatestCmd = &cobra.Command{
	Use:   "latest <project-id> <file>",
	Short: "Show the newest documentation for a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocsLatest,
}

var docsHistoryCmd = &cobra.Command{
	Use:   "history <project-id> <file>",
	Short: "List every documentation record for a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocsHistory,
}

func init() {
	for _, c := range []*cobra.Command{docsGetCmd, docsLatestCmd, docsHistoryCmd} {
		c.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	}
	docsGetCmd.Flags().StringVarP(&docsOut, "out", "o", "", "write the documentation to this file")
	docsLatestCmd.Flags().StringVarP(&docsOut, "out", "o", "", "write the documentation to this file")

	docsCmd.AddCommand(docsGetCmd)
	docsCmd.AddCommand(docsLatestCmd)
	docsCmd.AddCommand(docsHistoryCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsGet(cmd *cobra.Command, args []string) error {
	if documentationService == nil {
		return errors.New("documentation service not configured")
	}
	doc, err := documentationService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("get documentation: %w", err)
	}
	return printDoc(cmd, doc, docsJSON, docsOut)
}

func runDocsLatest(cmd *cobra.Command, args []string) error {
	if documentationService == nil {
		return errors.New("documentation service not configured")
	}
	doc, err := documentationService.Latest(commandContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("get documentation: %w", err)
	}
	return printDoc(cmd, doc, docsJSON, docsOut)
}

func runDocsHistory(cmd *cobra.Command, args []string) error {
	if documentationService == nil {
		return errors.New("documentation service not configured")
	}
	docs, err := documentationService.History(commandContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("list documentation: %w", err)
	}
	if docsJSON {
		return outputJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Printf("No documentation for %s yet.\n", args[1])
		return nil
	}
	for _, d := range docs {
		target := ""
		if d.Target != "" {
			target = " target=" + d.Target
		}
		cmd.Printf("%s  %s  %-9s %s%s\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04:05"), d.Kind, d.Model, target)
	}
	return nil
}
