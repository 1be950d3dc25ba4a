package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// FileStatus is the outcome of ingesting a single file.
type FileStatus string

// File outcomes.
const (
	FileIndexed FileStatus = "indexed"
	FileFailed  FileStatus = "failed"
)

// SourceInput is one extracted file handed to ingestion by the upload layer.
type SourceInput struct {
	// Path is relative to the project root, slash separated.
	Path string

	// Content is the raw file bytes.
	Content []byte

	// LanguageHint overrides extension-based detection when set.
	LanguageHint string
}

// SourceFile is the recorded state of one file in a project.
type SourceFile struct {
	ProjectID   string
	Path        string
	Language    string
	ContentHash string
	Size        int64

	// Content is kept for query construction and prompt assembly.
	Content string

	ChunkCount int
	Status     FileStatus

	// IndexFingerprint identifies the index and embedding model that hold
	// the file's chunks. See IndexFingerprint.
	IndexFingerprint string

	// Error explains a failed status.
	Error string

	IndexedAt time.Time
}

// Unchanged reports whether this record already holds an index for content
// with the given hash, built for the given index fingerprint. Failed records
// are never considered unchanged.
func (f *SourceFile) Unchanged(hash, fingerprint string) bool {
	return f != nil && f.Status == FileIndexed && f.ContentHash == hash &&
		f.IndexFingerprint == fingerprint
}

// IndexFingerprint names the vector store and embedding space chunks were
// written to. Records indexed under another fingerprint are re-embedded.
func IndexFingerprint(store VectorStoreSettings, embedding ProviderSettings, dimensions int) string {
	target := string(store.Backend)
	if store.Backend == VectorBackendQdrant {
		target += "@" + store.QdrantURL + "/" + store.QdrantCollection
	}
	return fmt.Sprintf("%s;%s/%s;%d", target, embedding.Provider, embedding.Model, dimensions)
}

// ContentHash returns the hex sha256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
