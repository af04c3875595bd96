package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarpitlabs/tarpit/internal/config"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestRegistryResolveOrder(t *testing.T) {
	reg := NewRegistry(silentLog())
	groq := &MockClient{ProviderName: "groq"}
	openai := &MockClient{ProviderName: "openai"}

	reg.Register("groq", groq)
	reg.Register("openai", openai)
	reg.Alias("llama-3.1-8b-instant", "groq")
	reg.SetFallback("openai")

	byName, err := reg.Resolve("groq")
	require.NoError(t, err)
	assert.Same(t, Client(groq), byName)

	byAlias, err := reg.Resolve("llama-3.1-8b-instant")
	require.NoError(t, err)
	assert.Same(t, Client(groq), byAlias)

	byFallback, err := reg.Resolve("something-unknown")
	require.NoError(t, err)
	assert.Same(t, Client(openai), byFallback)
}

func TestRegistryResolveEmpty(t *testing.T) {
	reg := NewRegistry(silentLog())
	_, err := reg.Resolve("anything")
	assert.Error(t, err)
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.LLMConfig{
		Provider: "groq",
		APIKey:   "key",
		Model:    "llama-3.1-8b-instant",
		Fallback: &config.LLMProviderConfig{
			Provider: "openai",
			APIKey:   "key2",
			Model:    "gpt-4o-mini",
		},
	}

	reg := NewRegistryFromConfig(cfg, silentLog())
	assert.ElementsMatch(t, []string{"groq", "openai"}, reg.List())

	primary, err := reg.Resolve("llama-3.1-8b-instant")
	require.NoError(t, err)
	assert.Equal(t, "groq", primary.Name())

	fallback, err := reg.Resolve("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", fallback.Name())
}

func TestNewRegistryFromConfigMissingKey(t *testing.T) {
	reg := NewRegistryFromConfig(config.LLMConfig{Provider: "groq", Model: "m"}, silentLog())
	assert.Empty(t, reg.List())
}

func TestOpenAIChatClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)

		resp := map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": " Why is my account blocked? "}},
			},
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 9},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewOpenAIChatClient("compat", srv.URL, "test-key", "test-model")
	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:   "persona prompt",
		Messages: []Message{{Role: RoleUser, Content: "your account is blocked"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Why is my account blocked?", resp.Content)
	assert.Equal(t, 42, resp.Usage.InputTokens)
	assert.Equal(t, 9, resp.Usage.OutputTokens)
}

func TestOpenAIChatClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIChatClient("compat", srv.URL, "k", "m")
	_, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.Code)
	assert.Equal(t, "compat", provErr.Provider)
}
