package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure DocumentationStore implements the interface.
var _ driven.DocumentationStore = (*DocumentationStore)(nil)

// DocumentationStore is an append-only in-memory documentation store.
type DocumentationStore struct {
	mu   sync.RWMutex
	docs map[string]domain.DocumentationRequest
	seq  map[string]int
	next int
}

// NewDocumentationStore creates an empty documentation store.
func NewDocumentationStore() *DocumentationStore {
	return &DocumentationStore{
		docs: make(map[string]domain.DocumentationRequest),
		seq:  make(map[string]int),
	}
}

// Create stores a new record. An existing ID is rejected.
func (s *DocumentationStore) Create(_ context.Context, doc *domain.DocumentationRequest) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: documentation id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return fmt.Errorf("%w: documentation %s already exists", domain.ErrInvalidInput, doc.ID)
	}
	s.docs[doc.ID] = cloneDoc(*doc)
	s.seq[doc.ID] = s.next
	s.next++
	return nil
}

// Get retrieves a record by ID.
func (s *DocumentationStore) Get(_ context.Context, id string) (*domain.DocumentationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("documentation %s: %w", id, domain.ErrNotFound)
	}
	d = cloneDoc(d)
	return &d, nil
}

// ListByFile returns every record for a file, newest first. Records created
// at the same instant keep reverse insertion order.
func (s *DocumentationStore) ListByFile(_ context.Context, projectID, path string) ([]domain.DocumentationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DocumentationRequest
	for _, d := range s.docs {
		if d.ProjectID == projectID && d.FilePath == path {
			out = append(out, cloneDoc(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func cloneDoc(d domain.DocumentationRequest) domain.DocumentationRequest {
	if d.ContextChunkIDs != nil {
		d.ContextChunkIDs = append([]string(nil), d.ContextChunkIDs...)
	}
	return d
}
