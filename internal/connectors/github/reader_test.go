package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
}

func newTestClient(t *testing.T, blobs map[string]string, entries []treeEntry) (*Client, *int) {
	t.Helper()
	blobCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/app", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "app", "default_branch": "main"})
	})
	mux.HandleFunc("GET /repos/acme/app/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Limit", "5000")
		_ = json.NewEncoder(w).Encode(map[string]any{"sha": "root", "tree": entries})
	})
	mux.HandleFunc("GET /repos/acme/app/git/blobs/{sha}", func(w http.ResponseWriter, r *http.Request) {
		blobCalls++
		content, ok := blobs[r.PathValue("sha")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			"encoding": "base64",
		})
	})
	mux.HandleFunc("GET /repos/acme/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClientWithHTTPClient(srv.Client(), 1000)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.GitHub().BaseURL = base
	return c, &blobCalls
}

func TestReader_Read(t *testing.T) {
	blobs := map[string]string{
		"s1": "package main\n",
		"s2": "def f():\n    pass\n",
		"s3": "gen/\n",
		"s4": "package gen\n",
		"s5": "x",
	}
	entries := []treeEntry{
		{Path: "main.go", Type: "blob", SHA: "s1", Size: 13},
		{Path: "pkg", Type: "tree", SHA: "t1"},
		{Path: "pkg/a.py", Type: "blob", SHA: "s2", Size: 18},
		{Path: ".gitignore", Type: "blob", SHA: "s3", Size: 5},
		{Path: "gen/api.go", Type: "blob", SHA: "s4", Size: 12},
		{Path: "node_modules/x/index.js", Type: "blob", SHA: "s5", Size: 1},
		{Path: "logo.png", Type: "blob", SHA: "s6", Size: 10},
		{Path: "huge.go", Type: "blob", SHA: "s7", Size: 5 << 20},
		{Path: "gone.go", Type: "blob", SHA: "missing", Size: 3},
	}
	client, blobCalls := newTestClient(t, blobs, entries)

	inputs, err := New(client, Repo{Owner: "acme", Name: "app"}, 0).Read(context.Background())
	require.NoError(t, err)

	got := make(map[string]string)
	for _, in := range inputs {
		got[in.Path] = string(in.Content)
	}
	assert.Equal(t, map[string]string{
		"main.go":    "package main\n",
		"pkg/a.py":   "def f():\n    pass\n",
		".gitignore": "gen/\n",
	}, got)
	// .gitignore is fetched twice: once for rules, once as content.
	assert.Equal(t, 5, *blobCalls)
	assert.Equal(t, 4999, client.RateLimiter().Remaining())
}

func TestReader_RepoNotFound(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)

	_, err := New(client, Repo{Owner: "acme", Name: "missing"}, 0).Read(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepoNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in      string
		want    Repo
		wantErr bool
	}{
		{"github:acme/app", Repo{Owner: "acme", Name: "app"}, false},
		{"acme/app@v1.2", Repo{Owner: "acme", Name: "app", Ref: "v1.2"}, false},
		{"https://github.com/acme/app.git", Repo{Owner: "acme", Name: "app"}, false},
		{"https://github.com/acme/app/tree/release/2", Repo{Owner: "acme", Name: "app", Ref: "release/2"}, false},
		{"https://gitlab.com/acme/app", Repo{}, true},
		{"acme", Repo{}, true},
		{"acme/app/extra", Repo{}, true},
		{"/app", Repo{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepo(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepo_String(t *testing.T) {
	assert.Equal(t, "acme/app", Repo{Owner: "acme", Name: "app"}.String())
	assert.Equal(t, "acme/app@dev", Repo{Owner: "acme", Name: "app", Ref: "dev"}.String())
}
