package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/logger"
)

// DefaultBatchSize is the maximum number of chunks per embedding request.
const DefaultBatchSize = 100

// BatchError reports an embedding batch that failed after every retry.
// None of its chunks received a vector.
type BatchError struct {
	Batch    int
	ChunkIDs []string
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch %d (%d chunks): %v", e.Batch, len(e.ChunkIDs), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// EmbeddingBatcher requests vectors for chunks in bounded batches.
type EmbeddingBatcher struct {
	embedder  driven.EmbeddingService
	batchSize int
	policy    domain.RetryPolicy
	timeout   time.Duration
}

// NewEmbeddingBatcher creates a batcher. A non-positive batchSize selects
// DefaultBatchSize; timeout bounds each attempt and zero disables it.
func NewEmbeddingBatcher(
	embedder driven.EmbeddingService,
	batchSize int,
	policy domain.RetryPolicy,
	timeout time.Duration,
) *EmbeddingBatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EmbeddingBatcher{
		embedder:  embedder,
		batchSize: batchSize,
		policy:    policy,
		timeout:   timeout,
	}
}

// Embed sets the Embedding of every chunk in place. Vectors are assigned
// only once a whole batch succeeds, so a failed batch leaves its chunks
// without vectors and a retried batch never duplicates work.
func (b *EmbeddingBatcher) Embed(ctx context.Context, chunks []domain.Chunk) error {
	if b.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	for n, start := 0, 0; start < len(chunks); n, start = n+1, start+b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}

		step := fmt.Sprintf("embed batch %d", n)
		done := logger.Timed("%s (%d chunks)", step, len(batch))
		vectors, err := withRetry(ctx, b.policy, b.timeout, step, func(ctx context.Context) ([][]float32, error) {
			v, err := b.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return nil, err
			}
			if err := b.validate(v, len(texts)); err != nil {
				return nil, err
			}
			return v, nil
		})
		done()
		if err != nil {
			ids := make([]string, len(batch))
			for i := range batch {
				ids[i] = batch[i].ID
			}
			return &BatchError{Batch: n, ChunkIDs: ids, Err: err}
		}

		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
	}
	return nil
}

// validate checks response order correspondence and dimensionality.
func (b *EmbeddingBatcher) validate(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrFatalProvider, len(vectors), want)
	}

	dims := b.embedder.Dimensions()
	for i, v := range vectors {
		if dims <= 0 {
			dims = len(v)
		}
		if len(v) != dims || len(v) == 0 {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", domain.ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return nil
}
