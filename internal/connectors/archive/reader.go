// Package archive reads a codebase from a zip upload.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/codexai/internal/connectors"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.SourceReader = (*Reader)(nil)

// Reader extracts files from a zip archive in memory.
type Reader struct {
	path     string
	maxBytes int64
	ignore   []string
}

// New creates a reader for the archive at p. maxBytes <= 0 selects the
// default cap.
func New(p string, maxBytes int64, ignore ...string) *Reader {
	return &Reader{path: p, maxBytes: maxBytes, ignore: ignore}
}

// Describe returns the archive name without its extension.
func (r *Reader) Describe() string {
	base := filepath.Base(r.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Read returns every accepted entry. A single top-level directory wrapping
// the whole archive is stripped, matching how most tools zip a project.
func (r *Reader) Read(ctx context.Context) ([]domain.SourceInput, error) {
	zr, err := zip.OpenReader(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive %s: %v", domain.ErrInvalidInput, r.path, err)
	}
	defer zr.Close()

	filter := connectors.NewFilter(r.maxBytes, r.ignore...)
	prefix := commonRoot(zr.File)

	// .gitignore files apply to the whole archive, so load them first.
	for _, f := range zr.File {
		name, ok := entryName(f.Name, prefix)
		if !ok || path.Base(name) != ".gitignore" {
			continue
		}
		content, err := readEntry(f, filter.MaxBytes())
		if err != nil {
			continue
		}
		filter.AddIgnoreFile(path.Dir(name), content)
	}

	var inputs []domain.SourceInput //nolint:prealloc // filtered
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := entryName(f.Name, prefix)
		if !ok || filter.InIgnoredDir(name) {
			continue
		}
		if !filter.Accept(name, int64(f.UncompressedSize64)) {
			continue
		}
		content, err := readEntry(f, filter.MaxBytes())
		if err != nil {
			logger.Warn("skip %s: %v", name, err)
			continue
		}
		inputs = append(inputs, domain.SourceInput{Path: name, Content: content})
	}

	logger.Debug("read %d files from %s", len(inputs), r.path)
	return inputs, nil
}

// entryName cleans an entry path and strips prefix. Entries escaping the
// root are rejected.
func entryName(name, prefix string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if prefix != "" {
		if !strings.HasPrefix(name, prefix+"/") {
			return "", false
		}
		name = strings.TrimPrefix(name, prefix+"/")
	}
	if name == "" || name == "." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}

// commonRoot returns the single top-level directory shared by every entry,
// or "" when there is none.
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		name, _ := entryName(f.Name, "")
		first, _, nested := strings.Cut(name, "/")
		if !nested && !f.FileInfo().IsDir() {
			return ""
		}
		if root == "" {
			root = first
		} else if root != first {
			return ""
		}
	}
	return root
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("entry exceeds %d bytes", limit)
	}
	return content, nil
}
