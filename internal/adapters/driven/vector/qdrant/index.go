// Package qdrant provides a VectorIndex backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/codexai/internal/adapters/driven/vector"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// pointNamespace derives stable point ids from chunk ids; Qdrant only
// accepts unsigned integers and UUIDs.
var pointNamespace = uuid.MustParse("6f1c2a4e-3b7d-4c59-9e0a-8d2f5b6c7a10")

const defaultTimeout = 15 * time.Second

// Config configures the Qdrant connection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index stores chunks as Qdrant points with their metadata as payload.
// The collection is created with cosine distance on the first upsert.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu    sync.Mutex
	ready bool
}

// New creates a Qdrant index.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant collection is required", domain.ErrInvalidInput)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Index{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// PointID returns the Qdrant point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// ==================== Wire types ====================

type payload struct {
	ChunkID    string `json:"chunk_id"`
	ProjectID  string `json:"project_id"`
	FilePath   string `json:"file_path"`
	Language   string `json:"language"`
	Kind       string `json:"kind"`
	Symbol     string `json:"symbol,omitempty"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	StartByte  int    `json:"start_byte"`
	EndByte    int    `json:"end_byte"`
	Overlap    int    `json:"overlap,omitempty"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type match struct {
	Value string   `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type filter struct {
	Must    []condition `json:"must,omitempty"`
	MustNot []condition `json:"must_not,omitempty"`
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload payload `json:"payload"`
	} `json:"result"`
}

func toPayload(c domain.Chunk) payload {
	return payload{
		ChunkID:    c.ID,
		ProjectID:  c.ProjectID,
		FilePath:   c.FilePath,
		Language:   c.Language,
		Kind:       string(c.Kind),
		Symbol:     c.Symbol,
		StartLine:  c.StartLine,
		EndLine:    c.EndLine,
		StartByte:  c.StartByte,
		EndByte:    c.EndByte,
		Overlap:    c.Overlap,
		Content:    c.Content,
		TokenCount: c.TokenCount,
	}
}

func (p payload) chunk() domain.Chunk {
	return domain.Chunk{
		ID:         p.ChunkID,
		ProjectID:  p.ProjectID,
		FilePath:   p.FilePath,
		Language:   p.Language,
		Kind:       domain.ChunkKind(p.Kind),
		Symbol:     p.Symbol,
		StartLine:  p.StartLine,
		EndLine:    p.EndLine,
		StartByte:  p.StartByte,
		EndByte:    p.EndByte,
		Overlap:    p.Overlap,
		Content:    p.Content,
		TokenCount: p.TokenCount,
	}
}

func toFilter(f domain.VectorFilter) filter {
	out := filter{Must: []condition{{Key: "project_id", Match: match{Value: f.ProjectID}}}}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		out.Must = append(out.Must, condition{Key: "kind", Match: match{Any: kinds}})
	}
	if len(f.Languages) > 0 {
		out.Must = append(out.Must, condition{Key: "language", Match: match{Any: f.Languages}})
	}
	if len(f.ExcludePaths) > 0 {
		out.MustNot = append(out.MustNot, condition{Key: "file_path", Match: match{Any: f.ExcludePaths}})
	}
	return out
}

// ==================== VectorIndex ====================

// Upsert inserts or replaces chunks by ID.
func (x *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]point, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID)
		}
		points[i] = point{ID: PointID(c.ID), Vector: c.Embedding, Payload: toPayload(c)}
	}
	if err := x.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}
	body := map[string]any{"points": points}
	if err := x.do(ctx, http.MethodPut, x.collectionURL("/points?wait=true"), body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// DeleteFile removes every chunk of one file in one project.
func (x *Index) DeleteFile(ctx context.Context, projectID, filePath string) error {
	body := map[string]any{"filter": filter{Must: []condition{
		{Key: "project_id", Match: match{Value: projectID}},
		{Key: "file_path", Match: match{Value: filePath}},
	}}}
	err := x.do(ctx, http.MethodPost, x.collectionURL("/points/delete?wait=true"), body, nil)
	if errors.Is(err, errMissingCollection) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// CountFile returns how many points of one file the collection holds. A
// missing collection holds none.
func (x *Index) CountFile(ctx context.Context, projectID, filePath string) (int, error) {
	body := map[string]any{
		"filter": filter{Must: []condition{
			{Key: "project_id", Match: match{Value: projectID}},
			{Key: "file_path", Match: match{Value: filePath}},
		}},
		"exact": true,
	}
	var resp countResponse
	err := x.do(ctx, http.MethodPost, x.collectionURL("/points/count"), body, &resp)
	if errors.Is(err, errMissingCollection) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.Result.Count, nil
}

// Search runs a filtered similarity query. The filter is evaluated by
// Qdrant before the limit is applied, and re-checked on the results.
func (x *Index) Search(ctx context.Context, query []float32, f domain.VectorFilter, k int) ([]domain.VectorHit, error) {
	if f.ProjectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"vector":       query,
		"limit":        k,
		"filter":       toFilter(f),
		"with_payload": true,
	}
	var resp searchResponse
	err := x.do(ctx, http.MethodPost, x.collectionURL("/points/search"), body, &resp)
	if errors.Is(err, errMissingCollection) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		c := r.Payload.chunk()
		if !f.Matches(&c) {
			continue
		}
		hits = append(hits, domain.VectorHit{Chunk: c, Score: r.Score})
	}
	return vector.Rank(hits, k), nil
}

// Close releases idle connections.
func (x *Index) Close() error {
	x.client.CloseIdleConnections()
	return nil
}

// ==================== HTTP ====================

var errMissingCollection = errors.New("collection does not exist")

func (x *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.url, x.collection, suffix)
}

// ensureCollection creates the collection once. A 409 means another
// process created it first.
func (x *Index) ensureCollection(ctx context.Context, dimensions int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ready {
		return nil
	}
	body := map[string]any{"vectors": map[string]any{"size": dimensions, "distance": "Cosine"}}
	err := x.do(ctx, http.MethodPut, x.collectionURL(""), body, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.code == http.StatusConflict) {
		return fmt.Errorf("create collection: %w", err)
	}
	x.ready = true
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant status %d: %s", e.code, e.body)
}

func (x *Index) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return errMissingCollection
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		se := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, se)
		}
		return se
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
