package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
	"github.com/custodia-labs/codexai/internal/logger"
)

var (
	watchProject string
	watchName    string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep a project in sync with a directory",
	Long: `Ingests a directory, then watches it and re-ingests whenever source
files change. Only changed files are re-embedded. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchProject, "project", "p", "", "existing project ID to update")
	watchCmd.Flags().StringVarP(&watchName, "name", "n", "", "display name for a new project")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil || openSource == nil || watchSource == nil {
		return errors.New("watch not configured")
	}
	ctx := commandContext(cmd)
	dir := args[0]

	reader, err := openSource(ctx, dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}

	projectID := watchProject
	if projectID == "" {
		projectID = newProjectID()
	}
	name := watchName
	if name == "" && watchProject == "" {
		name = reader.Describe()
	}

	changes, err := watchSource(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	resync := func() {
		files, err := reader.Read(ctx)
		if err != nil {
			logger.Error("read %s: %v", dir, err)
			return
		}
		res, err := ingestionService.Ingest(ctx, driving.IngestRequest{ProjectID: projectID, Name: name, Files: files})
		switch {
		case errors.Is(err, domain.ErrConcurrentIngestion):
			logger.Warn("project %s: previous run still active, skipping", projectID)
			return
		case err != nil && res == nil:
			cmd.PrintErrf("ingest failed: %v\n", err)
			return
		}
		cmd.Printf("[%s] %s: %d indexed, %d unchanged, %d removed, %d failed\n",
			res.Project.UpdatedAt.Format("15:04:05"), res.Project.Status,
			res.Indexed, res.Unchanged, res.Removed, len(res.Failures))
		// Later runs update the project without renaming it.
		name = ""
	}

	cmd.Printf("Watching %s as project %s\n", dir, projectID)
	resync()

	for batch := range changes {
		logger.Info("changed: %s", strings.Join(batch, ", "))
		resync()
	}
	cmd.Println("Stopped watching.")
	return nil
}
