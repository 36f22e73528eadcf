package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/apperr"
)

func TestNewProvider_SelectsStrategy(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{Provider: "openai", APIKey: "k", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
	assert.True(t, p.SupportsTools())

	p, err = NewProvider(config.LLMConfig{Provider: "bedrock-titan", APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, ProviderBedrockTitan, p.Name())
	assert.False(t, p.SupportsTools())
}

func TestNewProvider_RejectsUnknownStrategy(t *testing.T) {
	_, err := NewProvider(config.LLMConfig{Provider: "smoke-signals"})
	assert.Error(t, err)
}

func TestNewProvider_MissingCredentialsFailAtCallTime(t *testing.T) {
	for _, name := range []string{ProviderOpenAI, ProviderBedrockTitan} {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(config.LLMConfig{Provider: name})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), Request{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrProviderUnavailable))
		})
	}
}
