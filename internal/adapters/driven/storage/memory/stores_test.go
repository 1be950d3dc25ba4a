package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

func TestProjectStore_SaveGetList(t *testing.T) {
	ctx := context.Background()
	store := NewProjectStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, &domain.Project{ID: "old", CreatedAt: base}))
	require.NoError(t, store.Save(ctx, &domain.Project{ID: "new", CreatedAt: base.Add(time.Hour), FailedFiles: []string{"a.go"}}))

	got, err := store.Get(ctx, "new")
	require.NoError(t, err)
	got.FailedFiles[0] = "mutated"

	again, err := store.Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, again.FailedFiles)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	require.NoError(t, store.Delete(ctx, "old"))
	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Save(ctx, &domain.Project{}), domain.ErrInvalidInput)
}

func TestFileStore_ScopedByProject(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore()

	require.NoError(t, store.Save(ctx, &domain.SourceFile{ProjectID: "p1", Path: "b.go"}))
	require.NoError(t, store.Save(ctx, &domain.SourceFile{ProjectID: "p1", Path: "a.go"}))
	require.NoError(t, store.Save(ctx, &domain.SourceFile{ProjectID: "p2", Path: "a.go"}))

	files, err := store.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].Path)
	assert.Equal(t, "b.go", files[1].Path)

	require.NoError(t, store.Delete(ctx, "p1", "a.go"))
	_, err = store.Get(ctx, "p1", "a.go")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f, err := store.Get(ctx, "p2", "a.go")
	require.NoError(t, err)
	assert.Equal(t, "p2", f.ProjectID)
}

func TestDocumentationStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentationStore()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &domain.DocumentationRequest{ID: "1", ProjectID: "p", FilePath: "a.py", CreatedAt: at}))
	require.NoError(t, store.Create(ctx, &domain.DocumentationRequest{ID: "2", ProjectID: "p", FilePath: "a.py", CreatedAt: at}))
	require.NoError(t, store.Create(ctx, &domain.DocumentationRequest{ID: "3", ProjectID: "p", FilePath: "a.py", CreatedAt: at.Add(-time.Minute)}))
	require.NoError(t, store.Create(ctx, &domain.DocumentationRequest{ID: "4", ProjectID: "p", FilePath: "b.py", CreatedAt: at}))

	docs, err := store.ListByFile(ctx, "p", "a.py")
	require.NoError(t, err)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"2", "1", "3"}, ids)

	err = store.Create(ctx, &domain.DocumentationRequest{ID: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
