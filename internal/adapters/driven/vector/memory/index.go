// Package memory provides an in-process VectorIndex.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/codexai/internal/adapters/driven/vector"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps chunks in a map and scans them on every search.
type Index struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

// New creates an empty index.
func New() *Index {
	return &Index{chunks: make(map[string]domain.Chunk)}
}

// Upsert inserts or replaces chunks by ID.
func (x *Index) Upsert(_ context.Context, chunks []domain.Chunk) error {
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, chunks[i].ID)
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		x.chunks[c.ID] = c
	}
	return nil
}

// DeleteFile removes every chunk of one file in one project.
func (x *Index) DeleteFile(_ context.Context, projectID, filePath string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, c := range x.chunks {
		if c.ProjectID == projectID && c.FilePath == filePath {
			delete(x.chunks, id)
		}
	}
	return nil
}

// CountFile returns how many chunks of one file are stored.
func (x *Index) CountFile(_ context.Context, projectID, filePath string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, c := range x.chunks {
		if c.ProjectID == projectID && c.FilePath == filePath {
			n++
		}
	}
	return n, nil
}

// Search filters before scoring, so top-k is taken among matching chunks only.
func (x *Index) Search(_ context.Context, query []float32, filter domain.VectorFilter, k int) ([]domain.VectorHit, error) {
	if filter.ProjectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	var hits []domain.VectorHit
	for _, c := range x.chunks {
		if !filter.Matches(&c) {
			continue
		}
		hit := domain.VectorHit{Chunk: c, Score: vector.Cosine(query, c.Embedding)}
		hit.Chunk.Embedding = nil
		hits = append(hits, hit)
	}
	return vector.Rank(hits, k), nil
}

// Len returns the number of stored chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Close is a no-op.
func (x *Index) Close() error { return nil }
