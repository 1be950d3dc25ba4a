package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/codexai/internal/adapters/driving/tui"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

var (
	ingestProject    string
	ingestName       string
	ingestJSON       bool
	ingestNoProgress bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|archive.zip|github:owner/repo[@ref]>",
	Short: "Ingest a codebase into a project",
	Long: `Reads every source file of a directory, zip archive or GitHub repository,
splits it into chunks, embeds the chunks and indexes them.

Pass --project to re-ingest into an existing project: unchanged files are
skipped and files no longer present are removed from the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestProject, "project", "p", "", "existing project ID to update")
	ingestCmd.Flags().StringVarP(&ingestName, "name", "n", "", "display name for a new project")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the result as JSON")
	ingestCmd.Flags().BoolVar(&ingestNoProgress, "no-progress", false, "disable the interactive progress bar")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil || openSource == nil {
		return errors.New("ingestion service not configured")
	}
	ctx := commandContext(cmd)

	reader, err := openSource(ctx, args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	files, err := reader.Read(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no source files found in %s", domain.ErrInvalidInput, args[0])
	}

	name := ingestName
	if name == "" && ingestProject == "" {
		name = reader.Describe()
	}
	req := driving.IngestRequest{ProjectID: ingestProject, Name: name, Files: files}

	if !ingestJSON {
		cmd.Printf("Ingesting %d files from %s...\n", len(files), reader.Describe())
	}
	res, err := ingest(ctx, cmd, req, !ingestJSON && !ingestNoProgress && isTerminal())

	if ingestJSON && res != nil {
		if jerr := outputJSON(cmd, ingestSummary(res)); jerr != nil {
			return jerr
		}
	} else if res != nil {
		printIngestResult(cmd, res)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// ingest runs one ingestion, with the progress view when interactive.
// The project ID is fixed up front so status polling can find the run.
func ingest(ctx context.Context, cmd *cobra.Command, req driving.IngestRequest, interactive bool) (*driving.IngestResult, error) {
	if req.ProjectID == "" {
		req.ProjectID = newProjectID()
	}
	run := func(ctx context.Context) (*driving.IngestResult, error) {
		return ingestionService.Ingest(ctx, req)
	}
	status := func(ctx context.Context) (*driving.IngestStatus, error) {
		return ingestionService.Status(ctx, req.ProjectID)
	}

	if interactive {
		return tui.RunIngest(ctx, "Ingest "+req.Name, run, status)
	}
	return ingestWithPolling(ctx, cmd, run, status)
}

// ingestWithPolling runs ingestion while printing progress lines.
func ingestWithPolling(ctx context.Context, cmd *cobra.Command, run tui.RunFunc, status tui.StatusFunc) (*driving.IngestResult, error) {
	type outcome struct {
		res *driving.IngestResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := run(ctx)
		done <- outcome{res, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := 0
	for {
		select {
		case o := <-done:
			return o.res, o.err
		case <-ticker.C:
			st, err := status(ctx)
			if err == nil && st != nil && st.FilesProcessed > last {
				cmd.Printf("  processed %d/%d files\n", st.FilesProcessed, st.FilesTotal)
				last = st.FilesProcessed
			}
		}
	}
}

func printIngestResult(cmd *cobra.Command, res *driving.IngestResult) {
	p := res.Project
	cmd.Println()
	cmd.Printf("Project:   %s (%s)\n", p.Name, p.ID)
	cmd.Printf("Status:    %s\n", p.Status)
	cmd.Printf("Indexed:   %d files, %d chunks\n", res.Indexed, res.Chunks)
	cmd.Printf("Unchanged: %d files\n", res.Unchanged)
	if res.Removed > 0 {
		cmd.Printf("Removed:   %d files\n", res.Removed)
	}
	if len(res.Failures) > 0 {
		cmd.Printf("Failed:    %d files\n", len(res.Failures))
		for _, f := range res.Failures {
			cmd.Printf("  %s [%s]: %s\n", f.Path, f.Step, f.Reason)
		}
	}
}

type ingestJSONSummary struct {
	ProjectID string               `json:"project_id"`
	Name      string               `json:"name"`
	Status    domain.ProjectStatus `json:"status"`
	Indexed   int                  `json:"indexed"`
	Unchanged int                  `json:"unchanged"`
	Removed   int                  `json:"removed"`
	Chunks    int                  `json:"chunks"`
	Failures  []domain.FileFailure `json:"failures,omitempty"`
}

func ingestSummary(res *driving.IngestResult) ingestJSONSummary {
	return ingestJSONSummary{
		ProjectID: res.Project.ID,
		Name:      res.Project.Name,
		Status:    res.Project.Status,
		Indexed:   res.Indexed,
		Unchanged: res.Unchanged,
		Removed:   res.Removed,
		Chunks:    res.Chunks,
		Failures:  res.Failures,
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// isTerminal is a variable so tests can force the plain output.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
