package resolve

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/categorize"
	"github.com/fyrsmithlabs/resolvd/internal/compose"
	"github.com/fyrsmithlabs/resolvd/internal/format"
	"github.com/fyrsmithlabs/resolvd/internal/kb"
	"github.com/fyrsmithlabs/resolvd/internal/taxonomy"
	"github.com/fyrsmithlabs/resolvd/internal/websearch"
)

const instrumentationName = "resolvd.resolve"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

// Categorizer assigns a category to ticket text. Satisfied by
// categorize.Service.
type Categorizer interface {
	Categorize(ctx context.Context, text string) categorize.Result
}

// Retriever fetches knowledge passages for a query. Satisfied by
// kb.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []kb.Passage
	Available() bool
}

// Searcher is the optional web search enrichment client. Satisfied by
// websearch.Client.
type Searcher interface {
	IsAvailable() bool
	Search(ctx context.Context, query, category string) websearch.Response
}

// Config holds pipeline settings.
type Config struct {
	// TierTimeout bounds each cascade tier attempt. Default: 15s
	TierTimeout time.Duration

	// MaxContextChars bounds the composed context block. Default: 1000
	MaxContextChars int

	// UseWebSearch enables enrichment when the search client is
	// configured. Per-request flags can still turn it off.
	UseWebSearch bool
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TierTimeout <= 0 {
		c.TierTimeout = 15 * time.Second
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = compose.DefaultMaxChars
	}
}

// Resolution is the final outcome of one resolved ticket.
type Resolution struct {
	Category string  `json:"category"`
	Method   string  `json:"method"`
	Source   string  `json:"source_tier"`
	Quality  Quality `json:"quality"`
	Solution string  `json:"solution"`
}

// Pipeline runs categorization, context composition, and the solution
// cascade for one ticket at a time. It holds no per-request state, so a
// single instance is safe for concurrent use.
type Pipeline struct {
	config      Config
	categorizer Categorizer
	retriever   Retriever
	search      Searcher
	composer    compose.Composer
	tiers       []Tier
	logger      *zap.Logger

	resolutions  metric.Int64Counter
	tierFailures metric.Int64Counter
}

// NewPipeline assembles the cascade: knowledge base lookup, context
// composition, one tier per reasoning provider in order, and the
// terminal template tier. retriever and search may be nil; solutions
// may be nil; providers may be empty — the cascade degrades through
// whatever remains.
func NewPipeline(
	config Config,
	categorizer Categorizer,
	solutions SolutionLookup,
	retriever Retriever,
	search Searcher,
	providers []Completer,
	logger *zap.Logger,
) (*Pipeline, error) {
	if categorizer == nil {
		return nil, fmt.Errorf("categorizer is required")
	}
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	resolutions, err := meter.Int64Counter("resolvd.resolutions",
		metric.WithDescription("Resolved tickets, by source tier"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating counter: %w", err)
	}
	tierFailures, err := meter.Int64Counter("resolvd.tier_failures",
		metric.WithDescription("Cascade tier attempts that errored"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating counter: %w", err)
	}

	tiers := []Tier{
		NewKnowledgeBaseTier(solutions),
		NewContextTier(),
	}
	for _, p := range providers {
		tiers = append(tiers, NewProviderTier(p))
	}
	tiers = append(tiers, NewTemplateTier())

	return &Pipeline{
		config:       config,
		categorizer:  categorizer,
		retriever:    retriever,
		search:       search,
		composer:     compose.New(config.MaxContextChars),
		tiers:        tiers,
		logger:       logger,
		resolutions:  resolutions,
		tierFailures: tierFailures,
	}, nil
}

// WebSearchEnabled reports whether enrichment is configured and active.
func (p *Pipeline) WebSearchEnabled() bool {
	return p.config.UseWebSearch && p.search != nil && p.search.IsAvailable()
}

// RetrieverAvailable reports whether knowledge retrieval is configured.
func (p *Pipeline) RetrieverAvailable() bool {
	return p.retriever != nil && p.retriever.Available()
}

// CategorizeTicket is the safe categorization boundary: it never
// panics past this call. Returns the category and producing method.
func (p *Pipeline) CategorizeTicket(ctx context.Context, text string) (category, method string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("categorization panicked", zap.Any("panic", r))
			category = taxonomy.Fallback
			method = string(categorize.MethodError)
		}
	}()

	res := p.categorizer.Categorize(ctx, text)
	return res.Category, string(res.Method)
}

// Resolve categorizes the ticket (unless a category is supplied),
// gathers context, and runs the cascade. It never fails: panics and
// internal faults degrade to the static template with quality
// error_fallback.
func (p *Pipeline) Resolve(ctx context.Context, ticket, category string, useWebSearch bool) (out Resolution) {
	ctx, span := tracer.Start(ctx, "Pipeline.Resolve")
	defer span.End()

	method := "provided"
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("resolution panicked, returning template fallback", zap.Any("panic", r))
			if category == "" {
				category = taxonomy.Fallback
			}
			out = Resolution{
				Category: category,
				Method:   string(categorize.MethodError),
				Source:   SourceStaticTemplate,
				Quality:  QualityErrorFallback,
				Solution: format.Format(templateFor(category, ticket), category, string(categorize.MethodError), string(QualityErrorFallback)),
			}
		}
		span.SetAttributes(
			attribute.String("category", out.Category),
			attribute.String("source_tier", out.Source),
			attribute.String("quality", string(out.Quality)),
		)
		p.resolutions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source_tier", out.Source),
		))
	}()

	if category == "" {
		res := p.categorizer.Categorize(ctx, ticket)
		category = res.Category
		method = string(res.Method)
	}

	block := p.composeContext(ctx, ticket, category, useWebSearch)

	req := &Request{Ticket: ticket, Category: category, Context: block}
	result, errorsSeen := p.runCascade(ctx, req)

	quality := result.Quality
	if result.Source == SourceStaticTemplate && errorsSeen > 0 {
		quality = QualityErrorFallback
	}

	return Resolution{
		Category: category,
		Method:   method,
		Source:   result.Source,
		Quality:  quality,
		Solution: format.Format(result.Text, category, method, string(quality)),
	}
}

// GenerateSolution is the safe solution boundary used by external
// callers: (solution text, source tier label), never an error.
func (p *Pipeline) GenerateSolution(ctx context.Context, ticket, category string, useWebSearch bool) (string, string) {
	res := p.Resolve(ctx, ticket, category, useWebSearch)
	return res.Solution, res.Source
}

// composeContext retrieves knowledge passages and optionally enriches
// with web search, then composes the bounded context block. Both inputs
// are best-effort.
func (p *Pipeline) composeContext(ctx context.Context, ticket, category string, useWebSearch bool) compose.Block {
	var passages []kb.Passage
	if p.retriever != nil {
		passages = p.retriever.Retrieve(ctx, ticket)
	}

	webSummary := ""
	if useWebSearch && p.WebSearchEnabled() {
		resp := p.search.Search(ctx, ticket, category)
		if resp.Success {
			webSummary = resp.Answer
		} else if resp.Error != "" {
			p.logger.Debug("web search contributed nothing", zap.String("reason", resp.Error))
		}
	}

	return p.composer.Compose(passages, webSummary)
}

// runCascade tries each tier in order and returns the first usable
// result plus the number of tiers that errored along the way. The
// terminal template tier guarantees a non-nil result.
func (p *Pipeline) runCascade(ctx context.Context, req *Request) (*TierResult, int) {
	errorsSeen := 0

	for _, tier := range p.tiers {
		result, err := p.attemptTier(ctx, tier, req)
		if err != nil {
			errorsSeen++
			p.tierFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tier", tier.Name()),
			))
			p.logger.Warn("cascade tier failed, advancing",
				zap.String("tier", tier.Name()),
				zap.Error(err),
			)
			continue
		}
		if result == nil || result.Text == "" {
			continue
		}
		p.logger.Debug("cascade tier produced solution",
			zap.String("tier", tier.Name()),
			zap.String("source", result.Source),
		)
		return result, errorsSeen
	}

	// Unreachable while the template tier is last, but keep the
	// terminal guarantee explicit.
	return &TierResult{
		Text:    templateFor(req.Category, req.Ticket),
		Source:  SourceStaticTemplate,
		Quality: QualityLow,
	}, errorsSeen
}

// attemptTier isolates one tier: its own timeout, and panics converted
// to errors so a faulty tier cannot break the cascade.
func (p *Pipeline) attemptTier(ctx context.Context, tier Tier, req *Request) (result *TierResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.TierTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("tier %s panicked: %v", tier.Name(), r)
		}
	}()

	return tier.Attempt(ctx, req)
}
