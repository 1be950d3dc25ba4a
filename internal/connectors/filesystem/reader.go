// Package filesystem reads a codebase from a local directory and watches it
// for changes.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yargevad/filepathx"

	"github.com/custodia-labs/codexai/internal/connectors"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.SourceReader = (*Reader)(nil)

// Options tunes a Reader.
type Options struct {
	// MaxFileBytes skips larger files. Zero selects the default cap.
	MaxFileBytes int64

	// Ignore adds .gitignore style patterns to the defaults.
	Ignore []string

	// Include restricts ingestion to files matching any of these globs,
	// relative to the root. "**" matches across directories.
	Include []string
}

// Reader walks a directory tree.
type Reader struct {
	root string
	opts Options
}

// New creates a reader rooted at root.
func New(root string, opts Options) *Reader {
	return &Reader{root: root, opts: opts}
}

// Root returns the absolute root directory.
func (r *Reader) Root() string {
	abs, err := filepath.Abs(r.root)
	if err != nil {
		return r.root
	}
	return abs
}

// Describe returns the directory name.
func (r *Reader) Describe() string {
	return filepath.Base(r.Root())
}

// Read walks the tree and returns every accepted file. Directories matched
// by an ignore pattern are not descended into. .gitignore files are
// honoured at every level.
func (r *Reader) Read(ctx context.Context) ([]domain.SourceInput, error) {
	root := r.Root()
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	include, err := r.includeSet(root)
	if err != nil {
		return nil, err
	}

	filter := connectors.NewFilter(r.opts.MaxFileBytes, r.opts.Ignore...)
	var inputs []domain.SourceInput //nolint:prealloc // size unknown until walked

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("skip %s: %v", p, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := relative(root, p)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if filter.Ignored(rel, true) {
				return filepath.SkipDir
			}
			if ignore, err := os.ReadFile(filepath.Join(p, ".gitignore")); err == nil {
				filter.AddIgnoreFile(rel, ignore)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if include != nil && !include[p] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logger.Warn("skip %s: %v", rel, err)
			return nil
		}
		if !filter.Accept(rel, fi.Size()) {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("skip %s: %v", rel, err)
			return nil
		}
		inputs = append(inputs, domain.SourceInput{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	logger.Debug("read %d files from %s", len(inputs), root)
	return inputs, nil
}

// includeSet expands the include globs, or returns nil when there are none.
func (r *Reader) includeSet(root string) (map[string]bool, error) {
	if len(r.opts.Include) == 0 {
		return nil, nil
	}
	set := make(map[string]bool)
	for _, pattern := range r.opts.Include {
		abs := pattern
		if !filepath.IsAbs(pattern) {
			abs = filepath.Join(root, pattern)
		}
		matches, err := filepathx.Glob(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: include pattern %q: %v", domain.ErrInvalidInput, pattern, err)
		}
		for _, m := range matches {
			set[filepath.Clean(m)] = true
		}
	}
	return set, nil
}

// relative returns p relative to root, slash separated. The root is ".".
func relative(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// isHidden reports whether any path component starts with a dot. "." and
// ".." are not hidden.
func isHidden(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
