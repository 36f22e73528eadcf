package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/apperr"
)

func titanConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider: ProviderBedrockTitan,
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "amazon.titan-text-express-v1",
		Timeout:  5 * time.Second,
		Generation: config.LLMGenerationConfig{
			Temperature: 0.7,
			TopP:        0.9,
			MaxTokens:   512,
		},
	}
}

func TestTitanProvider_Complete(t *testing.T) {
	var got titanRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[{"outputText":"  Your water bill is due on Friday. "}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(titanConfig(srv.URL))
	require.NoError(t, err)
	assert.False(t, p.SupportsTools())

	out, err := p.Complete(context.Background(), Request{
		System: "You are a helpful assistant.",
		Messages: []Message{
			{Role: RoleUser, Content: "When is my bill due?"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Your water bill is due on Friday.", out.Content)
	assert.Nil(t, out.ToolCall)
	assert.Equal(t, "/model/amazon.titan-text-express-v1/invoke", gotPath)
	assert.Contains(t, got.InputText, "You are a helpful assistant.")
	assert.Contains(t, got.InputText, "User: When is my bill due?")
	assert.Equal(t, 512, got.TextGenerationConfig.MaxTokenCount)
}

func TestTitanProvider_FailuresAreProviderUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"empty results": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			p, err := NewProvider(titanConfig(srv.URL))
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrProviderUnavailable))
		})
	}
}

func TestBuildTitanPrompt_IncludesToolResult(t *testing.T) {
	prompt := buildTitanPrompt(Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "show bills"}, {Role: RoleAssistant, Content: "sure"}},
		Exchange: &ToolExchange{Call: ToolCall{Name: "get_user_bills"}, Result: `{"bills":[]}`},
	})

	assert.Contains(t, prompt, "Conversation History:")
	assert.Contains(t, prompt, "Assistant: sure")
	assert.Contains(t, prompt, `Function get_user_bills returned: {"bills":[]}`)
}
