package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from ProjectStatus
		to   ProjectStatus
		want bool
	}{
		{"", ProjectProcessing, true},
		{ProjectProcessing, ProjectIndexed, true},
		{ProjectProcessing, ProjectFailed, true},
		{ProjectFailed, ProjectProcessing, true},
		{ProjectIndexed, ProjectProcessing, true},
		{ProjectIndexed, ProjectFailed, false},
		{ProjectFailed, ProjectIndexed, false},
		{"", ProjectIndexed, false},
		{ProjectProcessing, "archived", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestProject_Transition(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Project{ID: "p1", Status: ProjectFailed, FailureReason: "old", FailedFiles: []string{"a.py"}}

	require.NoError(t, p.Transition(ProjectProcessing, now))
	assert.Equal(t, ProjectProcessing, p.Status)
	assert.Empty(t, p.FailureReason)
	assert.Empty(t, p.FailedFiles)
	assert.Equal(t, now, p.UpdatedAt)

	require.NoError(t, p.Transition(ProjectIndexed, now))

	err := p.Transition(ProjectFailed, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, ProjectIndexed, p.Status)
}

func TestSourceFile_Unchanged(t *testing.T) {
	hash := ContentHash([]byte("print('hi')"))

	var missing *SourceFile
	assert.False(t, missing.Unchanged(hash, "fp"))

	indexed := &SourceFile{ContentHash: hash, Status: FileIndexed, IndexFingerprint: "fp"}
	assert.True(t, indexed.Unchanged(hash, "fp"))
	assert.False(t, indexed.Unchanged(ContentHash([]byte("other")), "fp"))
	assert.False(t, indexed.Unchanged(hash, "other-index"))

	failed := &SourceFile{ContentHash: hash, Status: FileFailed, IndexFingerprint: "fp"}
	assert.False(t, failed.Unchanged(hash, "fp"))
}

func TestIndexFingerprint(t *testing.T) {
	embedding := ProviderSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-small"}
	sqlite := VectorStoreSettings{Backend: VectorBackendSQLite}
	qdrant := VectorStoreSettings{Backend: VectorBackendQdrant, QdrantURL: "http://localhost:6333", QdrantCollection: "codexai"}

	base := IndexFingerprint(sqlite, embedding, 1536)
	assert.Equal(t, base, IndexFingerprint(sqlite, embedding, 1536))

	tests := []struct {
		name string
		fp   string
	}{
		{name: "other backend", fp: IndexFingerprint(VectorStoreSettings{Backend: VectorBackendMemory}, embedding, 1536)},
		{name: "qdrant", fp: IndexFingerprint(qdrant, embedding, 1536)},
		{name: "other model", fp: IndexFingerprint(sqlite, ProviderSettings{Provider: AIProviderOpenAI, Model: "text-embedding-3-large"}, 1536)},
		{name: "other dimensions", fp: IndexFingerprint(sqlite, embedding, 768)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.fp)
		})
	}

	other := qdrant
	other.QdrantCollection = "other"
	assert.NotEqual(t, IndexFingerprint(qdrant, embedding, 1536), IndexFingerprint(other, embedding, 1536))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		hint string
		want string
	}{
		{"src/app.py", "", "python"},
		{"web/App.TSX", "", "typescript"},
		{"main.go", "", "go"},
		{"lib/util.hpp", "", "cpp"},
		{"README", "", LanguageText},
		{"notes.txt", "", LanguageText},
		{"script", "Python", "python"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.path, tt.hint))
		})
	}

	assert.True(t, IsSourceFile("a/b/c.rs"))
	assert.False(t, IsSourceFile("image.png"))
}
