package connectors

import (
	"bufio"
	"bytes"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// DefaultMaxFileBytes is the size cap applied when none is configured.
const DefaultMaxFileBytes = 1 << 20

// DefaultIgnorePatterns are always excluded, in .gitignore syntax.
var DefaultIgnorePatterns = []string{
	".git/",
	".env",
	".env.*",
	"node_modules/",
	"__pycache__/",
	"*.pyc",
	".DS_Store",
	"venv/",
	"env/",
	"dist/",
	"build/",
	".vscode/",
	".idea/",
	"*.log",
	".pytest_cache/",
	"coverage/",
	"*.egg-info/",
}

// Extensions accepted in addition to the languages the chunker knows.
var extraExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".xml": true, ".txt": true,
	".conf": true, ".config": true, ".toml": true, ".ini": true, ".sass": true,
	".m": true, ".mm": true,
}

var codeFileNames = map[string]bool{
	"Dockerfile": true, "Makefile": true, "README": true, "LICENSE": true,
	".gitignore": true, ".env.example": true,
}

// IsCodeFile reports whether a path looks like source or project text.
func IsCodeFile(p string) bool {
	base := path.Base(p)
	if codeFileNames[base] {
		return true
	}
	if domain.IsSourceFile(p) {
		return true
	}
	return extraExtensions[strings.ToLower(path.Ext(base))]
}

// Filter decides which paths of a codebase are ingested. Paths are
// slash separated and relative to the project root. Not safe for
// concurrent use while ignore files are being added.
type Filter struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
	maxBytes int64
}

// NewFilter creates a filter with the default ignore patterns plus extra.
// maxBytes <= 0 selects DefaultMaxFileBytes.
func NewFilter(maxBytes int64, extra ...string) *Filter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	f := &Filter{maxBytes: maxBytes}
	for _, p := range DefaultIgnorePatterns {
		f.patterns = append(f.patterns, gitignore.ParsePattern(p, nil))
	}
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			f.patterns = append(f.patterns, gitignore.ParsePattern(p, nil))
		}
	}
	f.matcher = gitignore.NewMatcher(f.patterns)
	return f
}

// AddIgnoreFile adds the patterns of a .gitignore found in dir. Patterns
// only apply below dir, as git does.
func (f *Filter) AddIgnoreFile(dir string, content []byte) {
	var domainParts []string
	if dir != "" && dir != "." {
		domainParts = split(dir)
	}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	added := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.patterns = append(f.patterns, gitignore.ParsePattern(line, domainParts))
		added = true
	}
	if added {
		f.matcher = gitignore.NewMatcher(f.patterns)
	}
}

// Ignored reports whether the path matches an ignore pattern.
func (f *Filter) Ignored(relPath string, isDir bool) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	return f.matcher.Match(split(relPath), isDir)
}

// InIgnoredDir reports whether any parent directory of relPath is ignored.
// Walkers that prune ignored directories never need it; flat listings such
// as zip entries and git trees do.
func (f *Filter) InIgnoredDir(relPath string) bool {
	parts := split(relPath)
	for i := 1; i < len(parts); i++ {
		if f.matcher.Match(parts[:i], true) {
			return true
		}
	}
	return false
}

// Accept reports whether a regular file is ingested.
func (f *Filter) Accept(relPath string, size int64) bool {
	if size > f.maxBytes {
		return false
	}
	if f.Ignored(relPath, false) {
		return false
	}
	return IsCodeFile(relPath)
}

// MaxBytes returns the size cap.
func (f *Filter) MaxBytes() int64 {
	return f.maxBytes
}

func split(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}
