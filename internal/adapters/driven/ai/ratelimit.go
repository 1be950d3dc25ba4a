package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// newLimiter returns nil when rps is not positive.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// limitedEmbedding throttles every provider call through a token bucket.
type limitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

var _ driven.EmbeddingService = (*limitedEmbedding)(nil)

func (l *limitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.EmbeddingService.Embed(ctx, text)
}

func (l *limitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.EmbeddingService.EmbedBatch(ctx, texts)
}

// limitedGeneration throttles every provider call through a token bucket.
type limitedGeneration struct {
	driven.GenerationService
	limiter *rate.Limiter
}

var _ driven.GenerationService = (*limitedGeneration)(nil)

func (l *limitedGeneration) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.GenerationService.Generate(ctx, req)
}

// WithEmbeddingRateLimit wraps svc so calls never exceed rps. A
// non-positive rps returns svc unchanged.
func WithEmbeddingRateLimit(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	limiter := newLimiter(rps)
	if svc == nil || limiter == nil {
		return svc
	}
	return &limitedEmbedding{EmbeddingService: svc, limiter: limiter}
}

// WithGenerationRateLimit wraps svc so calls never exceed rps. A
// non-positive rps returns svc unchanged.
func WithGenerationRateLimit(svc driven.GenerationService, rps float64) driven.GenerationService {
	limiter := newLimiter(rps)
	if svc == nil || limiter == nil {
		return svc
	}
	return &limitedGeneration{GenerationService: svc, limiter: limiter}
}
