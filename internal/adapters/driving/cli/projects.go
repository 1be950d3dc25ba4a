package cli

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sajari/fuzzy"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

var projectsJSON bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List ingested projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var filesCmd = &cobra.Command{
	Use:   "files <project-id>",
	Short: "List the files of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiles,
}

func init() {
	projectsCmd.Flags().BoolVar(&projectsJSON, "json", false, "output as JSON")
	filesCmd.Flags().BoolVar(&projectsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(filesCmd)
}

func runProjects(cmd *cobra.Command, _ []string) error {
	if documentationService == nil {
		return errors.New("documentation service not configured")
	}

	projects, err := documentationService.ListProjects(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if projectsJSON {
		return outputJSON(cmd, projects)
	}
	if len(projects) == 0 {
		cmd.Println("No projects. Run 'codexai ingest <path>' to create one.")
		return nil
	}

	for i := range projects {
		p := &projects[i]
		cmd.Printf("%s  %-10s  %-24s  %d files, %d chunks\n", p.ID, p.Status, p.Name, p.FileCount, p.ChunkCount)
		if p.Status == domain.ProjectFailed && p.FailureReason != "" {
			cmd.Printf("    %s\n", p.FailureReason)
		}
	}
	return nil
}

func runFiles(cmd *cobra.Command, args []string) error {
	if documentationService == nil {
		return errors.New("documentation service not configured")
	}

	files, err := documentationService.ListFiles(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	if projectsJSON {
		type fileJSON struct {
			Path     string            `json:"path"`
			Language string            `json:"language"`
			Status   domain.FileStatus `json:"status"`
			Chunks   int               `json:"chunks"`
			Error    string            `json:"error,omitempty"`
		}
		out := make([]fileJSON, len(files))
		for i, f := range files {
			out[i] = fileJSON{Path: f.Path, Language: f.Language, Status: f.Status, Chunks: f.ChunkCount, Error: f.Error}
		}
		return outputJSON(cmd, out)
	}

	for _, f := range files {
		cmd.Printf("%-8s %-12s %4d  %s\n", f.Status, f.Language, f.ChunkCount, f.Path)
		if f.Error != "" {
			cmd.Printf("         %s\n", f.Error)
		}
	}
	return nil
}

// suggestPaths returns up to three known paths close to a mistyped one,
// matching either the full path or its base name. Matching is case-insensitive.
func suggestPaths(ctx context.Context, projectID, want string) []string {
	files, err := documentationService.ListFiles(ctx, projectID)
	if err != nil || len(files) == 0 {
		return nil
	}

	model := fuzzy.NewModel()
	model.SetDepth(2)
	model.SetThreshold(1)

	known := make(map[string][]string)
	train := func(word, p string) {
		word = strings.ToLower(word)
		model.TrainWord(word)
		known[word] = append(known[word], p)
	}
	for _, f := range files {
		train(f.Path, f.Path)
		if base := path.Base(f.Path); base != f.Path {
			train(base, f.Path)
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, q := range []string{want, path.Base(want)} {
		for _, s := range model.Suggestions(strings.ToLower(q), false) {
			for _, p := range known[s] {
				if !seen[p] && len(out) < 3 {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
	}
	return out
}

func notFoundHint(ctx context.Context, projectID, filePath string) string {
	suggestions := suggestPaths(ctx, projectID, filePath)
	if len(suggestions) == 0 {
		return ""
	}
	return "did you mean: " + strings.Join(suggestions, ", ") + "?"
}

func newProjectID() string {
	return uuid.NewString()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
