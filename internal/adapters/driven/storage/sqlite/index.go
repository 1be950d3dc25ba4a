package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/codexai/internal/adapters/driven/vector"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// ==================== Vector Index ====================

// vectorIndex stores embeddings next to the metadata and scores candidates
// in Go. The SQL query narrows candidates to the filter before scoring.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

const chunkColumns = `id, project_id, file_path, language, kind, symbol, start_line, end_line,
	start_byte, end_byte, overlap, content, token_count, embedding`

// Upsert inserts or replaces chunks in one transaction. Every vector in the
// index must have the same dimensionality.
func (x *vectorIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	dims, err := x.dimensions(ctx)
	if err != nil {
		return err
	}
	for i := range chunks {
		n := len(chunks[i].Embedding)
		if n == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, chunks[i].ID)
		}
		if dims == 0 {
			dims = n
		}
		if n != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, chunks[i].ID, n, dims)
		}
	}

	tx, err := x.store.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`, dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			file_path = excluded.file_path,
			language = excluded.language,
			kind = excluded.kind,
			symbol = excluded.symbol,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			start_byte = excluded.start_byte,
			end_byte = excluded.end_byte,
			overlap = excluded.overlap,
			content = excluded.content,
			token_count = excluded.token_count,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions
	`)
	if err != nil {
		return unavailable("prepare upsert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.ProjectID, c.FilePath, c.Language, string(c.Kind),
			c.Symbol, c.StartLine, c.EndLine, c.StartByte, c.EndByte, c.Overlap, c.Content,
			c.TokenCount, float32SliceToBytes(c.Embedding), len(c.Embedding)); err != nil {
			return unavailable("upsert chunk "+c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit upsert", err)
	}
	return nil
}

// DeleteFile removes every chunk of one file in one project.
func (x *vectorIndex) DeleteFile(ctx context.Context, projectID, filePath string) error {
	_, err := x.store.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE project_id = ? AND file_path = ?", projectID, filePath)
	if err != nil {
		return unavailable("delete chunks", err)
	}
	return nil
}

// CountFile returns how many chunks of one file are stored.
func (x *vectorIndex) CountFile(ctx context.Context, projectID, filePath string) (int, error) {
	var n int
	err := x.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE project_id = ? AND file_path = ?", projectID, filePath).Scan(&n)
	if err != nil {
		return 0, unavailable("count chunks", err)
	}
	return n, nil
}

// Search scores every chunk matching the filter and returns the top k.
func (x *vectorIndex) Search(ctx context.Context, query []float32, f domain.VectorFilter, k int) ([]domain.VectorHit, error) {
	if f.ProjectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, nil
	}

	where, args := filterClause(f)
	rows, err := x.store.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE `+where, args...)
	if err != nil {
		return nil, unavailable("query chunks", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, unavailable("scan chunk", err)
		}
		score := vector.Cosine(query, c.Embedding)
		c.Embedding = nil
		hits = append(hits, domain.VectorHit{Chunk: *c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate chunks", err)
	}
	return vector.Rank(hits, k), nil
}

// Close is a no-op; the owning Store closes the database.
func (x *vectorIndex) Close() error { return nil }

// dimensions returns the dimensionality of stored vectors, or 0 when empty.
func (x *vectorIndex) dimensions(ctx context.Context) (int, error) {
	var dims int
	err := x.store.db.QueryRowContext(ctx, "SELECT dimensions FROM chunks LIMIT 1").Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("read dimensions", err)
	}
	return dims, nil
}

func filterClause(f domain.VectorFilter) (string, []any) {
	clauses := []string{"project_id = ?"}
	args := []any{f.ProjectID}

	in := func(column string, values []string, negate bool) {
		if len(values) == 0 {
			return
		}
		op := "IN"
		if negate {
			op = "NOT IN"
		}
		clauses = append(clauses, fmt.Sprintf("%s %s (%s)", column, op, placeholders(len(values))))
		for _, v := range values {
			args = append(args, v)
		}
	}

	kinds := make([]string, len(f.Kinds))
	for i, k := range f.Kinds {
		kinds[i] = string(k)
	}
	in("kind", kinds, false)
	in("language", f.Languages, false)
	in("file_path", f.ExcludePaths, true)

	return strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var kind string
	var blob []byte
	if err := row.Scan(&c.ID, &c.ProjectID, &c.FilePath, &c.Language, &kind, &c.Symbol,
		&c.StartLine, &c.EndLine, &c.StartByte, &c.EndByte, &c.Overlap, &c.Content,
		&c.TokenCount, &blob); err != nil {
		return nil, err
	}
	c.Kind = domain.ChunkKind(kind)
	c.Embedding = bytesToFloat32Slice(blob)
	return &c, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrIndexUnavailable, op, err)
}
