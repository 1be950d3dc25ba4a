package driven

import "github.com/custodia-labs/codexai/internal/core/domain"

// Parser extracts top-level declarations from source text of one language.
// A malformed file returns an error wrapping domain.ErrParseFailure; the
// chunker then falls back to line-based splitting.
type Parser interface {
	// Language returns the language tag this parser handles.
	Language() string

	// Parse returns the declaration tree of content.
	Parse(content string) (*domain.SyntaxTree, error)
}

// ParserRegistry selects a parser by language.
type ParserRegistry interface {
	// Get returns the parser for language, or false if none is registered.
	Get(language string) (Parser, bool)
}
