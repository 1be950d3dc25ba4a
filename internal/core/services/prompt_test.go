package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

func scored(chunks ...domain.Chunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(chunks))
	for i, c := range chunks {
		out[i] = domain.ScoredChunk{Chunk: c, Similarity: 1, Score: 1}
	}
	return out
}

func TestPromptBuilder_Build(t *testing.T) {
	b := NewPromptBuilder(newMockPromptStore(), domain.PromptSettings{})
	foo := indexedChunk("p1", "a.py", domain.KindFunction, "foo", "def foo():\n    return 1\n", 1)

	p, err := b.Build(PromptInput{
		File:    targetFile(),
		Context: scored(foo),
		Kind:    domain.DocReference,
		Budget:  4000,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p.System, "Write reference documentation."))
	assert.Contains(t, p.System, "Markdown")
	assert.Contains(t, p.User, "## File: b.py (python)")
	assert.Contains(t, p.User, "```python\nfrom a import foo\n")
	assert.Contains(t, p.User, "## Related code from the project")
	assert.Contains(t, p.User, "### a.py: function foo (lines 1-2)")
	assert.Equal(t, []string{foo.ID}, p.ContextIDs)
	assert.False(t, p.TargetTruncated)
	assert.Equal(t, domain.EstimateTokens(p.System)+domain.EstimateTokens(p.User), p.Tokens)
}

func TestPromptBuilder_KindsAndOptions(t *testing.T) {
	b := NewPromptBuilder(newMockPromptStore(), domain.PromptSettings{})

	tests := []struct {
		name     string
		kind     domain.DocKind
		opts     domain.DocOptions
		target   string
		contains []string
		excludes []string
	}{
		{
			name:     "tutorial",
			kind:     domain.DocTutorial,
			contains: []string{"Write a tutorial."},
			excludes: []string{"example tests", "dependencies", "Focus on"},
		},
		{
			name:     "overview with options",
			kind:     domain.DocOverview,
			opts:     domain.DocOptions{IncludeTests: true, IncludeDependencies: true},
			contains: []string{"Write an overview.", "example tests", "dependencies"},
		},
		{
			name:     "targeted symbol",
			kind:     domain.DocReference,
			target:   "bar",
			contains: []string{"Focus on `bar`"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := b.Build(PromptInput{File: targetFile(), Kind: tt.kind, Options: tt.opts, Target: tt.target})
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, p.System, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, p.System, s)
			}
			assert.NotContains(t, p.User, "Related code", "no context section without context")
		})
	}
}

func TestPromptBuilder_TruncatesTargetAtLineBoundary(t *testing.T) {
	b := NewPromptBuilder(newMockPromptStore(), domain.PromptSettings{TargetAllowance: 60})

	file := targetFile()
	file.Content = strings.Repeat("line_of_code = 12345\n", 50)

	p, err := b.Build(PromptInput{File: file, Kind: domain.DocReference, Budget: 100})
	require.NoError(t, err)

	assert.True(t, p.TargetTruncated)
	assert.Contains(t, p.User, truncatedMarker)

	start := strings.Index(p.User, "```python\n") + len("```python\n")
	end := strings.Index(p.User[start:], "```")
	body := p.User[start : start+end]
	assert.True(t, strings.HasSuffix(body, "12345\n"), "cut must land on a line boundary")
	assert.Less(t, len(body), len(file.Content))
}

func TestPromptBuilder_StaysWithinBudget(t *testing.T) {
	settings := domain.PromptSettings{TargetAllowance: 200, InstructionAllowance: 100}
	b := NewPromptBuilder(newMockPromptStore(), settings)

	var chunks []domain.Chunk
	for _, p := range []string{"c1.py", "c2.py", "c3.py", "c4.py", "c5.py", "c6.py"} {
		chunks = append(chunks, indexedChunk("p1", p, domain.KindModule, "", strings.Repeat("value = 1\n", 40), 1))
	}

	budget := 120
	p, err := b.Build(PromptInput{File: targetFile(), Context: scored(chunks...), Kind: domain.DocReference, Budget: budget})
	require.NoError(t, err)

	assert.LessOrEqual(t, p.Tokens, budget+settings.TargetAllowance+settings.InstructionAllowance)
	assert.NotEmpty(t, p.ContextIDs)
	assert.Less(t, len(p.ContextIDs), len(chunks), "trailing chunks are dropped")
	for i, id := range p.ContextIDs {
		assert.Equal(t, chunks[i].ID, id, "context keeps retrieval order")
	}
}

func TestPromptBuilder_Errors(t *testing.T) {
	t.Run("invalid kind", func(t *testing.T) {
		b := NewPromptBuilder(newMockPromptStore(), domain.PromptSettings{})
		_, err := b.Build(PromptInput{File: targetFile(), Kind: "poem"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing template", func(t *testing.T) {
		store := &mockPromptStore{prompts: map[string]string{}}
		b := NewPromptBuilder(store, domain.PromptSettings{})
		_, err := b.Build(PromptInput{File: targetFile(), Kind: domain.DocTutorial})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load tutorial prompt")
	})
}

func TestTruncateLines(t *testing.T) {
	content := "aaaa\nbbbb\ncccc\n"

	got, truncated := truncateLines(content, 100)
	assert.False(t, truncated)
	assert.Equal(t, content, got)

	got, truncated = truncateLines(content, 3)
	assert.True(t, truncated)
	assert.Equal(t, "aaaa\nbbbb\n", got)
}
