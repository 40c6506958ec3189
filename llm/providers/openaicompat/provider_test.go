package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chin3/hat-manager/llm"
	"github.com/chin3/hat-manager/llm/providers"
	"github.com/chin3/hat-manager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		logger       *zap.Logger
		wantEndpoint string
		wantModels   string
		wantName     string
	}{
		{
			name:         "all defaults applied",
			cfg:          Config{},
			wantEndpoint: "/v1/chat/completions",
			wantModels:   "/v1/models",
			wantName:     "openaicompat",
		},
		{
			name: "custom endpoint paths preserved",
			cfg: Config{
				ProviderName:   "ollama",
				EndpointPath:   "/api/chat",
				ModelsEndpoint: "/api/tags",
			},
			logger:       zap.NewNop(),
			wantEndpoint: "/api/chat",
			wantModels:   "/api/tags",
			wantName:     "ollama",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, tt.logger)
			assert.Equal(t, tt.wantEndpoint, p.Cfg.EndpointPath)
			assert.Equal(t, tt.wantModels, p.Cfg.ModelsEndpoint)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, 30*time.Second, p.Client.Timeout)
			assert.NotNil(t, p.Logger)
		})
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestCompletion_Success(t *testing.T) {
	var captured providers.OpenAICompatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID:      "cmpl-1",
			Model:   captured.Model,
			Created: 1700000000,
			Choices: []providers.OpenAICompatChoice{{
				Message: providers.OpenAICompatMessage{Role: "assistant", Content: "Draft A #APPROVED"},
			}},
			Usage: &providers.OpenAICompatUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
		})
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, APIKey: "sk-test", DefaultModel: "gpt-4o-mini"}, nil)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a critic agent named 'Critic'."},
			{Role: llm.RoleUser, Content: "Draft A"},
		},
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "Draft A #APPROVED", resp.Content())
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, int64(1700000000), resp.CreatedAt.Unix())
}

func TestCompletion_HTTPErrorMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimit, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "slow down")
}

func TestCompletion_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestCompletion_RejectsEmptyRequest(t *testing.T) {
	p := New(Config{BaseURL: "http://unused"}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestCompletion_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := New(Config{BaseURL: server.URL}, nil)
	_, err := p.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamTimeout, types.GetErrorCode(err))
}

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestHealthCheck(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL}, nil)
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	healthy = false
	status, err = p.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.False(t, status.Healthy)
}
