package categorize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/taxonomy"
)

type mockEmbedder struct {
	queryVec []float32
	docVecs  [][]float32
	err      error
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.queryVec, nil
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.docVecs != nil {
		return m.docVecs, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0, 0, 1}
	}
	return out, nil
}

type mockCompleter struct {
	answer string
	err    error
	called bool
}

func (m *mockCompleter) Complete(_ context.Context, _ string) (string, error) {
	m.called = true
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func newPatternService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(taxonomy.Default(), nil, nil, Config{}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresTaxonomy(t *testing.T) {
	_, err := NewService(nil, nil, nil, Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{SemanticThreshold: 1.5}
	require.Error(t, cfg.Validate())

	_, err := NewService(taxonomy.Default(), nil, nil, Config{SemanticThreshold: 2}, zap.NewNop())
	require.Error(t, err)
}

func TestCategorizePattern(t *testing.T) {
	svc := newPatternService(t)

	tests := []struct {
		name     string
		text     string
		category string
	}{
		{"login keywords", "I cannot login with my password", "login_issue"},
		{"crash pattern", "Extension crashes when opening large files", "bug_report"},
		{"network terms", "getting a connection timeout reaching the server", "network_error"},
		{"slow performance", "the dashboard is very slow and laggy today", "performance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Categorize(context.Background(), tt.text)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, MethodPattern, res.Method)
			assert.Greater(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestCategorizeEmptyText(t *testing.T) {
	svc := newPatternService(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		res := svc.Categorize(context.Background(), text)
		assert.Equal(t, taxonomy.Fallback, res.Category)
		assert.Equal(t, MethodDefault, res.Method)
		assert.Zero(t, res.Confidence)
	}
}

func TestCategorizeNoMatchDefaults(t *testing.T) {
	svc := newPatternService(t)

	res := svc.Categorize(context.Background(), "hello there general question about nothing specific")
	assert.Equal(t, taxonomy.Fallback, res.Category)
	assert.Equal(t, MethodDefault, res.Method)
}

func TestCategorizeTieBreakDeterministic(t *testing.T) {
	// One keyword from each of two categories; priority order decides.
	tax, err := taxonomy.New([]taxonomy.Category{
		{Name: "alpha", Keywords: []string{"widget"}},
		{Name: "beta", Keywords: []string{"gadget"}},
	})
	require.NoError(t, err)

	svc, err := NewService(tax, nil, nil, Config{}, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		res := svc.Categorize(context.Background(), "the widget and the gadget are both broken")
		require.Equal(t, "alpha", res.Category)
		require.Equal(t, MethodPattern, res.Method)
	}
}

func TestCategorizeSemanticFallback(t *testing.T) {
	embedder := &mockEmbedder{queryVec: []float32{0, 0, 1}}
	svc, err := NewService(taxonomy.Default(), embedder, nil, Config{SemanticThreshold: 0.5}, zap.NewNop())
	require.NoError(t, err)

	// Unmatched by patterns; every example embeds to the same vector,
	// so the first category above threshold wins.
	res := svc.Categorize(context.Background(), "something vague happened somewhere")
	assert.Equal(t, MethodEmbedding, res.Method)
	assert.True(t, svc.taxonomy.Contains(res.Category))
	assert.Greater(t, res.Confidence, 0.5)
}

func TestCategorizeSemanticBelowThreshold(t *testing.T) {
	embedder := &mockEmbedder{queryVec: []float32{1, 0, 0}} // orthogonal to examples
	svc, err := NewService(taxonomy.Default(), embedder, nil, Config{}, zap.NewNop())
	require.NoError(t, err)

	res := svc.Categorize(context.Background(), "something vague happened somewhere")
	assert.Equal(t, MethodDefault, res.Method)
	assert.Equal(t, taxonomy.Fallback, res.Category)
}

func TestCategorizeEmbedderFailureDegrades(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("embedding server down")}
	svc, err := NewService(taxonomy.Default(), embedder, nil, Config{}, zap.NewNop())
	require.NoError(t, err)

	res := svc.Categorize(context.Background(), "something vague happened somewhere")
	assert.Equal(t, MethodDefault, res.Method)
}

func TestCategorizeLLMFallback(t *testing.T) {
	t.Run("exact label", func(t *testing.T) {
		llm := &mockCompleter{answer: "network_error"}
		svc, err := NewService(taxonomy.Default(), nil, llm, Config{}, zap.NewNop())
		require.NoError(t, err)

		res := svc.Categorize(context.Background(), "something vague happened somewhere")
		assert.Equal(t, "network_error", res.Category)
		assert.Equal(t, MethodLLM, res.Method)
		assert.True(t, llm.called)
	})

	t.Run("messy answer normalized", func(t *testing.T) {
		llm := &mockCompleter{answer: "  Network Error.\nBecause the ticket mentions..."}
		svc, err := NewService(taxonomy.Default(), nil, llm, Config{}, zap.NewNop())
		require.NoError(t, err)

		res := svc.Categorize(context.Background(), "something vague happened somewhere")
		assert.Equal(t, "network_error", res.Category)
		assert.Equal(t, MethodLLM, res.Method)
	})

	t.Run("label outside taxonomy rejected", func(t *testing.T) {
		llm := &mockCompleter{answer: "totally_made_up_label"}
		svc, err := NewService(taxonomy.Default(), nil, llm, Config{}, zap.NewNop())
		require.NoError(t, err)

		res := svc.Categorize(context.Background(), "something vague happened somewhere")
		assert.Equal(t, MethodDefault, res.Method)
		assert.Equal(t, taxonomy.Fallback, res.Category)
	})

	t.Run("provider error degrades", func(t *testing.T) {
		llm := &mockCompleter{err: errors.New("timeout")}
		svc, err := NewService(taxonomy.Default(), nil, llm, Config{}, zap.NewNop())
		require.NoError(t, err)

		res := svc.Categorize(context.Background(), "something vague happened somewhere")
		assert.Equal(t, MethodDefault, res.Method)
	})
}

func TestCategorizePatternBeatsFallbacks(t *testing.T) {
	llm := &mockCompleter{answer: "documentation"}
	svc, err := NewService(taxonomy.Default(), &mockEmbedder{queryVec: []float32{0, 0, 1}}, llm, Config{}, zap.NewNop())
	require.NoError(t, err)

	res := svc.Categorize(context.Background(), "I cannot login with my password")
	assert.Equal(t, "login_issue", res.Category)
	assert.Equal(t, MethodPattern, res.Method)
	assert.False(t, llm.called)
}

func TestCategorizeConfidenceCapped(t *testing.T) {
	tax, err := taxonomy.New([]taxonomy.Category{
		{Name: "dense", Keywords: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}},
	})
	require.NoError(t, err)

	svc, err := NewService(tax, nil, nil, Config{}, zap.NewNop())
	require.NoError(t, err)

	res := svc.Categorize(context.Background(), "a b c d e f g h i j k l")
	assert.Equal(t, 1.0, res.Confidence)
}
