package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

type fileKey struct {
	project string
	path    string
}

// FileStore is an in-memory source file store.
type FileStore struct {
	mu    sync.RWMutex
	files map[fileKey]domain.SourceFile
}

// NewFileStore creates an empty file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[fileKey]domain.SourceFile)}
}

// Save creates or updates a file record.
func (s *FileStore) Save(_ context.Context, file *domain.SourceFile) error {
	if file == nil || file.ProjectID == "" || file.Path == "" {
		return fmt.Errorf("%w: project id and path are required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileKey{file.ProjectID, file.Path}] = *file
	return nil
}

// Get retrieves one file.
func (s *FileStore) Get(_ context.Context, projectID, path string) (*domain.SourceFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileKey{projectID, path}]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", path, domain.ErrNotFound)
	}
	return &f, nil
}

// List returns every file of a project ordered by path.
func (s *FileStore) List(_ context.Context, projectID string) ([]domain.SourceFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SourceFile
	for k, f := range s.files {
		if k.project == projectID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Delete removes one file record.
func (s *FileStore) Delete(_ context.Context, projectID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileKey{projectID, path})
	return nil
}
