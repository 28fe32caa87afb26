package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/categorize"
	"github.com/fyrsmithlabs/resolvd/internal/kb"
	"github.com/fyrsmithlabs/resolvd/internal/taxonomy"
	"github.com/fyrsmithlabs/resolvd/internal/websearch"
)

type mapSolutions map[string]string

func (m mapSolutions) Get(category string) (string, bool) {
	text, ok := m[category]
	return text, ok
}

type mockRetriever struct {
	passages []kb.Passage
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string) []kb.Passage { return m.passages }
func (m *mockRetriever) Available() bool                                   { return true }

type mockSearcher struct {
	available bool
	response  websearch.Response
	called    bool
}

func (m *mockSearcher) IsAvailable() bool { return m.available }
func (m *mockSearcher) Search(_ context.Context, _, _ string) websearch.Response {
	m.called = true
	return m.response
}

type mockProvider struct {
	name     string
	response string
	err      error
	panics   bool
	blockCtx bool
	called   bool
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Complete(ctx context.Context, _ string) (string, error) {
	m.called = true
	if m.panics {
		panic("provider bug")
	}
	if m.blockCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func newCategorizer(t *testing.T) Categorizer {
	t.Helper()
	svc, err := categorize.NewService(taxonomy.Default(), nil, nil, categorize.Config{}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func newPipeline(t *testing.T, solutions SolutionLookup, retriever Retriever, search Searcher, providers []Completer, cfg Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, newCategorizer(t), solutions, retriever, search, providers, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewPipelineRequiresCategorizer(t *testing.T) {
	_, err := NewPipeline(Config{}, nil, nil, nil, nil, nil, zap.NewNop())
	require.Error(t, err)
}

func TestResolveTotality(t *testing.T) {
	p := newPipeline(t, nil, nil, nil, nil, Config{})

	for _, ticket := range []string{"", "   ", "I cannot login with my password", strings.Repeat("x", 10000)} {
		res := p.Resolve(context.Background(), ticket, "", false)
		assert.NotEmpty(t, res.Solution)
		assert.NotEmpty(t, res.Category)
		assert.NotEmpty(t, res.Source)
	}
}

func TestCategorizeTicketTotality(t *testing.T) {
	p := newPipeline(t, nil, nil, nil, nil, Config{})

	category, method := p.CategorizeTicket(context.Background(), "")
	assert.Equal(t, taxonomy.Fallback, category)
	assert.Equal(t, "default", method)

	category, method = p.CategorizeTicket(context.Background(), "I cannot login with my password")
	assert.Equal(t, "login_issue", category)
	assert.Equal(t, "pattern", method)
}

func TestResolveKnowledgeBaseFirst(t *testing.T) {
	kbText := "Update to version 2.1 which fixes the crash on large files."
	p := newPipeline(t,
		mapSolutions{"bug_report": kbText},
		&mockRetriever{passages: []kb.Passage{{Content: "run the installer again"}}},
		nil,
		[]Completer{&mockProvider{name: "primary", response: "llm answer"}},
		Config{},
	)

	res := p.Resolve(context.Background(), "Extension crashes when opening large files", "", false)
	assert.Equal(t, "bug_report", res.Category)
	assert.Equal(t, "pattern", res.Method)
	assert.Equal(t, SourceKnowledgeBase, res.Source)
	assert.Equal(t, QualityHigh, res.Quality)
	assert.Contains(t, res.Solution, kbText)
}

func TestResolveCascadeMonotonicity(t *testing.T) {
	provider := &mockProvider{name: "primary", response: "Diagnosis: X.\n1. Do Y."}
	retriever := &mockRetriever{passages: []kb.Passage{{Content: "run the diagnostic tool and open the report"}}}
	ticket := "Extension crashes when opening large files"

	t.Run("kb wins when present", func(t *testing.T) {
		p := newPipeline(t, mapSolutions{"bug_report": "canned"}, retriever, nil, []Completer{provider}, Config{})
		res := p.Resolve(context.Background(), ticket, "", false)
		assert.Equal(t, SourceKnowledgeBase, res.Source)
	})

	t.Run("context tier when no kb entry", func(t *testing.T) {
		p := newPipeline(t, mapSolutions{}, retriever, nil, []Completer{provider}, Config{})
		res := p.Resolve(context.Background(), ticket, "", false)
		assert.Equal(t, SourceWebTemplate, res.Source)
		assert.Equal(t, QualityMedium, res.Quality)
	})

	t.Run("provider tier when no context", func(t *testing.T) {
		p := newPipeline(t, mapSolutions{}, &mockRetriever{}, nil, []Completer{provider}, Config{})
		res := p.Resolve(context.Background(), ticket, "", false)
		assert.Equal(t, "reasoning_provider_primary", res.Source)
		assert.Equal(t, QualityMedium, res.Quality)
	})

	t.Run("template when nothing else", func(t *testing.T) {
		p := newPipeline(t, mapSolutions{}, &mockRetriever{}, nil, nil, Config{})
		res := p.Resolve(context.Background(), ticket, "", false)
		assert.Equal(t, SourceStaticTemplate, res.Source)
		assert.Equal(t, QualityLow, res.Quality)
	})
}

func TestResolveProviderOrder(t *testing.T) {
	first := &mockProvider{name: "primary", err: errors.New("quota exceeded")}
	second := &mockProvider{name: "secondary", response: "use the fallback endpoint"}

	p := newPipeline(t, nil, nil, nil, []Completer{first, second}, Config{})
	res := p.Resolve(context.Background(), "something unusual happened today", "", false)

	assert.True(t, first.called)
	assert.True(t, second.called)
	assert.Equal(t, "reasoning_provider_secondary", res.Source)
}

func TestResolveTemplateTerminalGuarantee(t *testing.T) {
	failing := &mockProvider{name: "down", err: errors.New("connection refused")}
	p := newPipeline(t, nil, &mockRetriever{}, nil, []Completer{failing}, Config{})

	res := p.Resolve(context.Background(), "I cannot login with my password", "", false)
	assert.Equal(t, "login_issue", res.Category)
	assert.Equal(t, SourceStaticTemplate, res.Source)
	assert.Equal(t, QualityErrorFallback, res.Quality)
	assert.Contains(t, res.Solution, "resetting your password")
}

func TestResolveEndToEndExamples(t *testing.T) {
	t.Run("login ticket with bare pipeline", func(t *testing.T) {
		p := newPipeline(t, nil, nil, nil, nil, Config{})
		res := p.Resolve(context.Background(), "I cannot login with my password", "", false)

		assert.Equal(t, "login_issue", res.Category)
		assert.Equal(t, SourceStaticTemplate, res.Source)
		assert.Equal(t, QualityLow, res.Quality)
		assert.Contains(t, res.Solution, "resetting your password")
	})

	t.Run("deterministic across identical runs", func(t *testing.T) {
		p := newPipeline(t, mapSolutions{"bug_report": "canned fix"}, nil, nil, nil, Config{})
		ticket := "Extension crashes when opening large files"

		a := p.Resolve(context.Background(), ticket, "", false)
		b := p.Resolve(context.Background(), ticket, "", false)
		assert.Equal(t, a, b)
	})
}

func TestResolveProvidedCategorySkipsCategorizer(t *testing.T) {
	p := newPipeline(t, mapSolutions{"network_error": "restart the router"}, nil, nil, nil, Config{})

	res := p.Resolve(context.Background(), "whatever text", "network_error", false)
	assert.Equal(t, "network_error", res.Category)
	assert.Equal(t, "provided", res.Method)
	assert.Equal(t, SourceKnowledgeBase, res.Source)
	assert.Contains(t, res.Solution, "restart the router")
}

func TestResolveWebSearchEnrichment(t *testing.T) {
	search := &mockSearcher{
		available: true,
		response:  websearch.Response{Success: true, Answer: "Open the settings panel and configure the proxy."},
	}
	p := newPipeline(t, nil, &mockRetriever{}, search, nil, Config{UseWebSearch: true})

	res := p.Resolve(context.Background(), "something strange is happening", "", true)
	assert.True(t, search.called)
	assert.Equal(t, SourceWebTemplate, res.Source)
	assert.Contains(t, res.Solution, "settings panel")
}

func TestResolveWebSearchSkippedWhenDisabled(t *testing.T) {
	search := &mockSearcher{available: true, response: websearch.Response{Success: true, Answer: "from the web"}}

	t.Run("per-request flag off", func(t *testing.T) {
		p := newPipeline(t, nil, nil, search, nil, Config{UseWebSearch: true})
		p.Resolve(context.Background(), "ticket", "", false)
		assert.False(t, search.called)
	})

	t.Run("pipeline disabled", func(t *testing.T) {
		p := newPipeline(t, nil, nil, search, nil, Config{UseWebSearch: false})
		p.Resolve(context.Background(), "ticket", "", true)
		assert.False(t, search.called)
		assert.False(t, p.WebSearchEnabled())
	})

	t.Run("client unavailable", func(t *testing.T) {
		unavailable := &mockSearcher{available: false}
		p := newPipeline(t, nil, nil, unavailable, nil, Config{UseWebSearch: true})
		p.Resolve(context.Background(), "ticket", "", true)
		assert.False(t, unavailable.called)
	})
}

func TestResolveTierPanicIsolated(t *testing.T) {
	panicking := &mockProvider{name: "buggy", panics: true}
	healthy := &mockProvider{name: "healthy", response: "the real answer"}

	p := newPipeline(t, nil, nil, nil, []Completer{panicking, healthy}, Config{})
	res := p.Resolve(context.Background(), "something odd is going on", "", false)

	assert.Equal(t, "reasoning_provider_healthy", res.Source)
}

func TestResolveTierTimeout(t *testing.T) {
	slow := &mockProvider{name: "slow", blockCtx: true}
	p := newPipeline(t, nil, nil, nil, []Completer{slow}, Config{TierTimeout: 20 * time.Millisecond})

	start := time.Now()
	res := p.Resolve(context.Background(), "something odd is going on", "", false)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, SourceStaticTemplate, res.Source)
	assert.Equal(t, QualityErrorFallback, res.Quality)
}

func TestGenerateSolution(t *testing.T) {
	p := newPipeline(t, mapSolutions{"login_issue": "reset flow"}, nil, nil, nil, Config{})

	solution, source := p.GenerateSolution(context.Background(), "I cannot login with my password", "", false)
	assert.Equal(t, SourceKnowledgeBase, source)
	assert.Contains(t, solution, "reset flow")
}

func TestContextTierExtraction(t *testing.T) {
	tier := NewContextTier()

	t.Run("empty context passes", func(t *testing.T) {
		res, err := tier.Attempt(context.Background(), &Request{Ticket: "t"})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("action lines become numbered steps", func(t *testing.T) {
		text := composeFromContext(
			"Background paragraph without verbs.\nInstall the latest build.\nOpen the settings page.\nUnrelated remark.",
			"my ticket",
		)
		assert.Contains(t, text, "1. Install the latest build.")
		assert.Contains(t, text, "2. Open the settings page.")
		assert.NotContains(t, text, "Unrelated remark")
	})

	t.Run("no action lines fall back to summary", func(t *testing.T) {
		text := composeFromContext("Purely descriptive background with no imperatives at all.", "my ticket")
		assert.True(t, strings.HasPrefix(text, "Summary of related knowledge:"))
	})

	t.Run("at most five steps", func(t *testing.T) {
		lines := strings.Repeat("Run the tool.\n", 10)
		text := composeFromContext(lines, "my ticket")
		assert.Contains(t, text, "5. Run the tool.")
		assert.NotContains(t, text, "6. Run the tool.")
	})
}

func TestTemplateFor(t *testing.T) {
	assert.Contains(t, templateFor("login_issue", ""), "resetting your password")
	assert.Contains(t, templateFor("network_error", ""), "router")

	generic := templateFor("mystery_category", "my odd problem")
	assert.Contains(t, generic, "my odd problem")
	assert.Contains(t, generic, "mystery_category")

	long := strings.Repeat("y", 500)
	truncated := templateFor("mystery_category", long)
	assert.Less(t, len(truncated), 600)
}
