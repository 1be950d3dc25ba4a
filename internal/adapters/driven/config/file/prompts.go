package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads documentation preambles from ~/.codexai/prompts/<kind>.md.
// The directory and default files are created on the first Load, never
// overwriting user edits. A missing or empty file falls back to the
// built-in preamble.
type PromptStore struct {
	dir string

	initOnce sync.Once
	initErr  error

	mu    sync.RWMutex
	cache map[string]string
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptReference: `You are a senior engineer writing reference documentation for one source file of a larger codebase.
Document every public function, class and method in the file: purpose, parameters, return values, errors raised and side effects.
Use the related code from the project only to explain how the file's symbols are called and what they depend on; do not document the related code itself.
Do not invent behaviour that the code does not show.`,

	driven.PromptTutorial: `You are a senior engineer writing a tutorial for developers who are new to this codebase.
Walk through how to use the file step by step, starting from the most common entry point, with short runnable examples.
Use the related code from the project to show realistic call sites and the objects the reader needs to construct first.
Keep each step small and explain why it is needed.`,

	driven.PromptOverview: `You are a senior engineer summarising one source file for a design review.
Explain the file's role in the project, its main abstractions and how data flows through it, in a few short sections.
Use the related code from the project to describe who depends on this file and what it depends on.
Prefer prose and one small diagram over exhaustive listings.`,
}

// NewPromptStore creates a prompt store. If dir is empty, defaults to
// ~/.codexai/prompts. No I/O happens until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".codexai", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the preamble for name.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fallback, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt := fallback
	if data, err := os.ReadFile(s.path(name)); err == nil {
		if text := strings.TrimSpace(string(data)); text != "" {
			prompt = text
		}
	}

	s.mu.Lock()
	if existing, ok := s.cache[name]; ok {
		prompt = existing
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload clears the cache so edited files are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".md")
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range defaultPrompts {
		path := s.path(name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
}
