// Package parsers maps language tags to syntax parsers used by the chunker.
package parsers

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps language tags to parsers. New languages register an
// implementation here; the chunker only sees driven.ParserRegistry.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]driven.Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]driven.Parser),
	}
}

// Register adds a parser under its own language tag and any aliases.
// A later registration for the same tag replaces the earlier one.
func (r *Registry) Register(p driven.Parser, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[normalise(p.Language())] = p
	for _, alias := range aliases {
		r.parsers[normalise(alias)] = p
	}
}

// Get returns the parser for language.
func (r *Registry) Get(language string) (driven.Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[normalise(language)]
	return p, ok
}

// Has returns true if a parser is registered for language.
func (r *Registry) Has(language string) bool {
	_, ok := r.Get(language)
	return ok
}

// Languages returns every registered tag, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalise(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
