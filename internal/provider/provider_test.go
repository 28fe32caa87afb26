package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/resolvd/internal/config"
)

// mockModel is a canned langchaingo model for testing the adapter.
type mockModel struct {
	response string
	err      error
	waitCtx  bool
}

func (m *mockModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *mockModel) Call(ctx context.Context, _ string, _ ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{"missing name", config.ProviderConfig{Type: "openai", Model: "gpt-4o-mini"}},
		{"missing model", config.ProviderConfig{Name: "primary", Type: "openai"}},
		{"unsupported type", config.ProviderConfig{Name: "primary", Type: "cohere", Model: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewOpenAI(t *testing.T) {
	p, err := New(config.ProviderConfig{
		Name:   "primary",
		Type:   "openai",
		Model:  "gpt-4o-mini",
		APIKey: config.Secret("sk-test"),
	})
	require.NoError(t, err)
	assert.Equal(t, "primary", p.Name())
}

func TestNewOllama(t *testing.T) {
	p, err := New(config.ProviderConfig{
		Name:    "local",
		Type:    "ollama",
		Model:   "llama3.2",
		BaseURL: "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
}

func TestNewAllPreservesOrder(t *testing.T) {
	providers, err := NewAll([]config.ProviderConfig{
		{Name: "primary", Type: "openai", Model: "gpt-4o-mini", APIKey: config.Secret("sk-test")},
		{Name: "local", Type: "ollama", Model: "llama3.2"},
	})
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "primary", providers[0].Name())
	assert.Equal(t, "local", providers[1].Name())
}

func TestNewAllStopsOnError(t *testing.T) {
	_, err := NewAll([]config.ProviderConfig{
		{Name: "bad", Type: "unknown", Model: "x"},
	})
	require.Error(t, err)
}

func TestCompleteTrimsOutput(t *testing.T) {
	p := &langchainProvider{name: "mock", model: &mockModel{response: "  do the thing  \n"}, timeout: time.Second}

	out, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "do the thing", out)
}

func TestCompleteRejectsEmpty(t *testing.T) {
	p := &langchainProvider{name: "mock", model: &mockModel{response: "   "}, timeout: time.Second}

	_, err := p.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteWrapsModelError(t *testing.T) {
	p := &langchainProvider{name: "mock", model: &mockModel{err: errors.New("rate limited")}, timeout: time.Second}

	_, err := p.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock")
}

func TestCompleteEnforcesTimeout(t *testing.T) {
	p := &langchainProvider{name: "slow", model: &mockModel{waitCtx: true}, timeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := p.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
