package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/codexai/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.codexai/data/codexai.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".codexai", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "codexai.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ProjectStore returns a ProjectStore backed by this store.
func (s *Store) ProjectStore() driven.ProjectStore {
	return &projectStore{store: s}
}

// FileStore returns a FileStore backed by this store.
func (s *Store) FileStore() driven.FileStore {
	return &fileStore{store: s}
}

// DocumentationStore returns a DocumentationStore backed by this store.
func (s *Store) DocumentationStore() driven.DocumentationStore {
	return &documentationStore{store: s}
}

// VectorIndex returns a VectorIndex over the chunks table. Closing the
// index does not close the store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// migrate applies every .up.sql file newer than the recorded version, each
// in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Project Store ====================

type projectStore struct {
	store *Store
}

var _ driven.ProjectStore = (*projectStore)(nil)

const projectColumns = `id, name, status, file_count, chunk_count, failure_reason, failed_files, created_at, updated_at`

// Save creates or updates a project.
func (s *projectStore) Save(ctx context.Context, p *domain.Project) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	failed, err := json.Marshal(nonNil(p.FailedFiles))
	if err != nil {
		return fmt.Errorf("marshalling failed files: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			file_count = excluded.file_count,
			chunk_count = excluded.chunk_count,
			failure_reason = excluded.failure_reason,
			failed_files = excluded.failed_files,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, string(p.Status), p.FileCount, p.ChunkCount, p.FailureReason,
		string(failed), toUnix(p.CreatedAt), toUnix(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID.
func (s *projectStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return p, nil
}

// List returns all projects, newest first.
func (s *projectStore) List(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// Delete removes a project; files, chunks and documentation cascade.
func (s *projectStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

func scanProject(row scanner) (*domain.Project, error) {
	var p domain.Project
	var status, failed string
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &status, &p.FileCount, &p.ChunkCount,
		&p.FailureReason, &failed, &created, &updated); err != nil {
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	if err := json.Unmarshal([]byte(failed), &p.FailedFiles); err != nil {
		return nil, fmt.Errorf("unmarshalling failed files: %w", err)
	}
	if len(p.FailedFiles) == 0 {
		p.FailedFiles = nil
	}
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return &p, nil
}

// ==================== File Store ====================

type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

const fileColumns = `project_id, path, language, content_hash, size, content, chunk_count, status, error, indexed_at,
	index_fingerprint`

// Save creates or updates a file record.
func (s *fileStore) Save(ctx context.Context, f *domain.SourceFile) error {
	if f == nil || f.ProjectID == "" || f.Path == "" {
		return fmt.Errorf("%w: project id and path are required", domain.ErrInvalidInput)
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO source_files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			size = excluded.size,
			content = excluded.content,
			chunk_count = excluded.chunk_count,
			status = excluded.status,
			error = excluded.error,
			indexed_at = excluded.indexed_at,
			index_fingerprint = excluded.index_fingerprint
	`, f.ProjectID, f.Path, f.Language, f.ContentHash, f.Size, f.Content,
		f.ChunkCount, string(f.Status), f.Error, toUnix(f.IndexedAt), f.IndexFingerprint)
	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// Get retrieves one file.
func (s *fileStore) Get(ctx context.Context, projectID, path string) (*domain.SourceFile, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM source_files WHERE project_id = ? AND path = ?`, projectID, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	return f, nil
}

// List returns every file of a project ordered by path.
func (s *fileStore) List(ctx context.Context, projectID string) ([]domain.SourceFile, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM source_files WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.SourceFile //nolint:prealloc // size unknown from query
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return files, nil
}

// Delete removes one file record.
func (s *fileStore) Delete(ctx context.Context, projectID, path string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM source_files WHERE project_id = ? AND path = ?", projectID, path)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

func scanFile(row scanner) (*domain.SourceFile, error) {
	var f domain.SourceFile
	var status string
	var indexed int64
	if err := row.Scan(&f.ProjectID, &f.Path, &f.Language, &f.ContentHash, &f.Size,
		&f.Content, &f.ChunkCount, &status, &f.Error, &indexed, &f.IndexFingerprint); err != nil {
		return nil, err
	}
	f.Status = domain.FileStatus(status)
	f.IndexedAt = fromUnix(indexed)
	return &f, nil
}

// ==================== Documentation Store ====================

type documentationStore struct {
	store *Store
}

var _ driven.DocumentationStore = (*documentationStore)(nil)

const docColumns = `id, project_id, file_path, kind, target, include_tests, include_deps, content,
	prompt_tokens, completion_tokens, context_chunk_ids, model, target_truncated, created_at`

// Create stores a new record. Records are never updated.
func (s *documentationStore) Create(ctx context.Context, d *domain.DocumentationRequest) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("%w: documentation id is required", domain.ErrInvalidInput)
	}
	ids, err := json.Marshal(nonNil(d.ContextChunkIDs))
	if err != nil {
		return fmt.Errorf("marshalling context ids: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documentation_requests (`+docColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.ProjectID, d.FilePath, string(d.Kind), d.Target,
		d.Options.IncludeTests, d.Options.IncludeDependencies, d.Content,
		d.PromptTokens, d.CompletionTokens, string(ids), d.Model, d.TargetTruncated, toUnix(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving documentation: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *documentationStore) Get(ctx context.Context, id string) (*domain.DocumentationRequest, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documentation_requests WHERE id = ?`, id)
	d, err := scanDoc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("documentation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning documentation: %w", err)
	}
	return d, nil
}

// ListByFile returns every record for a file, newest first.
func (s *documentationStore) ListByFile(ctx context.Context, projectID, path string) ([]domain.DocumentationRequest, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+docColumns+` FROM documentation_requests
		WHERE project_id = ? AND file_path = ?
		ORDER BY created_at DESC, seq DESC
	`, projectID, path)
	if err != nil {
		return nil, fmt.Errorf("querying documentation: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentationRequest //nolint:prealloc // size unknown from query
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning documentation: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documentation: %w", err)
	}
	return docs, nil
}

func scanDoc(row scanner) (*domain.DocumentationRequest, error) {
	var d domain.DocumentationRequest
	var kind, ids string
	var created int64
	if err := row.Scan(&d.ID, &d.ProjectID, &d.FilePath, &kind, &d.Target,
		&d.Options.IncludeTests, &d.Options.IncludeDependencies, &d.Content,
		&d.PromptTokens, &d.CompletionTokens, &ids, &d.Model, &d.TargetTruncated, &created); err != nil {
		return nil, err
	}
	d.Kind = domain.DocKind(kind)
	if err := json.Unmarshal([]byte(ids), &d.ContextChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling context ids: %w", err)
	}
	if len(d.ContextChunkIDs) == 0 {
		d.ContextChunkIDs = nil
	}
	d.CreatedAt = fromUnix(created)
	return &d, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Times are stored as Unix nanoseconds so ordering in SQL is exact.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
