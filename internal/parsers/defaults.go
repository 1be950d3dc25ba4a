package parsers

import (
	"github.com/custodia-labs/codexai/internal/parsers/brace"
	"github.com/custodia-labs/codexai/internal/parsers/golang"
	"github.com/custodia-labs/codexai/internal/parsers/python"
)

// RegisterDefaults registers all built-in parsers with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(golang.New(), "golang")
	r.Register(python.New(), "py")
	for _, lang := range brace.Languages() {
		r.Register(brace.New(lang))
	}
	r.Register(brace.New("javascript"), "js", "jsx")
	r.Register(brace.New("typescript"), "ts", "tsx")
	r.Register(brace.New("csharp"), "c#", "cs")
	r.Register(brace.New("cpp"), "c++")
}

// NewDefaultRegistry returns a registry with every built-in parser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
