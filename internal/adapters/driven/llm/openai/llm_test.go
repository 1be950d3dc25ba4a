package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

func serve(t *testing.T, status int, body string, check func(chatRequest)) *GenerationService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(req)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	svc, err := NewGenerationService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func TestGenerate(t *testing.T) {
	svc := serve(t, 200, `{"model":"gpt-4o-mini-2024","choices":[{"message":{"role":"assistant","content":" # Docs \n"},"finish_reason":"stop"}],"usage":{"prompt_tokens":120,"completion_tokens":30}}`,
		func(req chatRequest) {
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "be brief", req.Messages[0].Content)
			assert.Equal(t, 500, req.MaxTokens)
			assert.InDelta(t, 0.3, req.Temperature, 1e-9)
		})

	res, err := svc.Generate(context.Background(), driven.GenerationRequest{
		System: "be brief", Prompt: "document", MaxTokens: 500, Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Docs", res.Text)
	assert.Equal(t, 120, res.PromptTokens)
	assert.Equal(t, 30, res.CompletionTokens)
	assert.Equal(t, "gpt-4o-mini-2024", res.Model)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"content filter", 200, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`, domain.ErrFatalProvider},
		{"no choices", 200, `{"choices":[]}`, domain.ErrFatalProvider},
		{"invalid key", 401, `{"error":{"message":"bad key"}}`, domain.ErrFatalProvider},
		{"overloaded", 529, `{}`, domain.ErrTransientProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := serve(t, tt.status, tt.body, nil)
			_, err := svc.Generate(context.Background(), driven.GenerationRequest{Prompt: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
