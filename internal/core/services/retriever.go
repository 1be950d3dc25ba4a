package services

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/logger"
)

// Lexical boosts for candidates referenced by the target file.
const (
	symbolBoost = 1.0
	pathBoost   = 0.5
)

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Retriever selects the context chunks for one target file.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	chunker  driven.Chunker
	settings domain.RetrievalSettings
	policy   domain.RetryPolicy
	timeout  time.Duration
}

// NewRetriever creates a retriever. Zero settings fields take the defaults.
func NewRetriever(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	chunker driven.Chunker,
	settings domain.RetrievalSettings,
	policy domain.RetryPolicy,
	timeout time.Duration,
) *Retriever {
	defaults := domain.DefaultAppSettings().Retrieval
	if settings.TokenBudget <= 0 {
		settings.TokenBudget = defaults.TokenBudget
	}
	if settings.TopK <= 0 {
		settings.TopK = defaults.TopK
	}
	if settings.LexicalWeight < 0 {
		settings.LexicalWeight = defaults.LexicalWeight
	}
	if settings.QueryTokenLimit <= 0 {
		settings.QueryTokenLimit = defaults.QueryTokenLimit
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		chunker:  chunker,
		settings: settings,
		policy:   policy,
		timeout:  timeout,
	}
}

// Retrieve returns ranked context chunks for target whose summed token
// estimates stay within budget. Chunks of the target file itself are never
// returned. budget and k fall back to the configured defaults when <= 0.
func (r *Retriever) Retrieve(ctx context.Context, target *domain.SourceFile, budget, k int) ([]domain.ScoredChunk, error) {
	if budget <= 0 {
		budget = r.settings.TokenBudget
	}
	if k <= 0 {
		k = r.settings.TopK
	}

	query := r.queryText(target)
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := withRetry(ctx, r.policy, r.timeout, "embed query", func(ctx context.Context) ([]float32, error) {
		return r.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := domain.VectorFilter{
		ProjectID:    target.ProjectID,
		ExcludePaths: []string{target.Path},
	}
	hits, err := r.index.Search(ctx, vector, filter, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	ranked := r.rank(target, hits)
	selected := pack(ranked, budget)

	logger.Debug("retrieve %s: %d hits, %d selected", target.Path, len(hits), len(selected))
	return selected, nil
}

// queryText is the target content, or its most important chunks when the
// content is above the query limit.
func (r *Retriever) queryText(target *domain.SourceFile) string {
	limit := r.settings.QueryTokenLimit
	if domain.EstimateTokens(target.Content) <= limit {
		return target.Content
	}

	var chunks []domain.Chunk
	if r.chunker != nil {
		chunks, _ = r.chunker.ChunkFile(target)
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Kind.Priority() > chunks[j].Kind.Priority()
	})

	var b strings.Builder
	used := 0
	for _, c := range chunks {
		t := c.Tokens()
		if used+t > limit {
			continue
		}
		b.WriteString(c.Content)
		used += t
	}
	if b.Len() > 0 {
		return b.String()
	}

	text, _ := domain.TruncateToTokens(target.Content, limit)
	return text
}

// rank drops foreign and self hits, deduplicates by id, applies the lexical
// boost and orders the candidates deterministically.
func (r *Retriever) rank(target *domain.SourceFile, hits []domain.VectorHit) []domain.ScoredChunk {
	idents := identifiers(target.Content)

	seen := make(map[string]bool, len(hits))
	ranked := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		c := h.Chunk
		if c.ProjectID != target.ProjectID || c.FilePath == target.Path || seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		lex := lexicalBoost(c, idents)
		ranked = append(ranked, domain.ScoredChunk{
			Chunk:      c,
			Similarity: h.Score,
			Lexical:    lex,
			Score:      h.Score + r.settings.LexicalWeight*lex,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if pa, pb := a.Chunk.Kind.Priority(), b.Chunk.Kind.Priority(); pa != pb {
			return pa > pb
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	return ranked
}

// pack accepts chunks whole, in order, until the next would overflow budget.
func pack(ranked []domain.ScoredChunk, budget int) []domain.ScoredChunk {
	used := 0
	for i, c := range ranked {
		t := c.Chunk.Tokens()
		if used+t > budget {
			return ranked[:i]
		}
		used += t
	}
	return ranked
}

// lexicalBoost is 1 when a part of the chunk's symbol is referenced by the
// target, 0.5 when the stem of its file name is, and 0 otherwise.
func lexicalBoost(c domain.Chunk, idents map[string]bool) float64 {
	if c.Symbol != "" {
		parts := strings.FieldsFunc(c.Symbol, func(r rune) bool { return r == '.' || r == ':' })
		for _, p := range parts {
			if idents[p] {
				return symbolBoost
			}
		}
	}
	base := path.Base(c.FilePath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if idents[stem] {
		return pathBoost
	}
	return 0
}

func identifiers(content string) map[string]bool {
	idents := make(map[string]bool)
	for _, m := range identPattern.FindAllString(content, -1) {
		idents[m] = true
	}
	return idents
}
