package domain

// VectorFilter restricts a similarity search. ProjectID is mandatory:
// a search never crosses projects.
type VectorFilter struct {
	ProjectID string

	// Kinds keeps only chunks of these kinds when non-empty.
	Kinds []ChunkKind

	// Languages keeps only chunks in these languages when non-empty.
	Languages []string

	// ExcludePaths drops chunks from these files.
	ExcludePaths []string
}

// Matches reports whether a chunk passes the filter.
func (f VectorFilter) Matches(c *Chunk) bool {
	if c.ProjectID != f.ProjectID {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, c.Kind) {
		return false
	}
	if len(f.Languages) > 0 && !containsString(f.Languages, c.Language) {
		return false
	}
	return !containsString(f.ExcludePaths, c.FilePath)
}

// VectorHit is one similarity search result. Chunk carries metadata and
// content but not the embedding.
type VectorHit struct {
	Chunk Chunk

	// Score is the cosine similarity with the query.
	Score float64
}

// ScoredChunk is a retrieval candidate after re-ranking.
type ScoredChunk struct {
	Chunk Chunk

	// Similarity is the raw vector score.
	Similarity float64

	// Lexical is the identifier-overlap boost in [0, 1].
	Lexical float64

	// Score is the composite ranking score.
	Score float64
}

func containsKind(kinds []ChunkKind, k ChunkKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
