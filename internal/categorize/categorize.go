// Package categorize assigns a taxonomy category to free-text support
// tickets. Layered heuristics run in order: keyword/regex scoring,
// embedding similarity against canonical examples, and a reasoning
// provider fallback, finally degrading to the reserved default category.
package categorize

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/embeddings"
	"github.com/fyrsmithlabs/resolvd/internal/taxonomy"
)

const instrumentationName = "resolvd.categorize"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

// Method describes which layer produced the category.
type Method string

const (
	MethodPattern   Method = "pattern"
	MethodEmbedding Method = "embedding"
	MethodLLM       Method = "llm"
	MethodDefault   Method = "default"
	MethodError     Method = "error"
)

// Result is the outcome of one categorization call.
type Result struct {
	Category   string  `json:"category"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// Embedder is the slice of the embeddings service the semantic
// fallback needs.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is a reasoning provider used as the last heuristic layer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds categorizer settings.
type Config struct {
	// SemanticThreshold is the minimum cosine similarity for the
	// embedding fallback to accept a category. Default: 0.5
	SemanticThreshold float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SemanticThreshold == 0 {
		c.SemanticThreshold = 0.5
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.SemanticThreshold < 0 || c.SemanticThreshold > 1 {
		return fmt.Errorf("semantic threshold must be in [0, 1], got %f", c.SemanticThreshold)
	}
	return nil
}

// Service categorizes tickets against a fixed taxonomy. Safe for
// concurrent use; the taxonomy and config are read-only after creation.
type Service struct {
	taxonomy *taxonomy.Taxonomy
	embedder Embedder
	llm      Completer
	config   Config
	logger   *zap.Logger

	// exampleVectors caches embeddings of the per-category canonical
	// examples, computed lazily on first semantic fallback.
	exampleMu      sync.Mutex
	exampleVectors [][]float32

	categorizations metric.Int64Counter
}

// NewService creates a categorizer. embedder and llm are optional; nil
// disables the corresponding fallback layer.
func NewService(tax *taxonomy.Taxonomy, embedder Embedder, llm Completer, config Config, logger *zap.Logger) (*Service, error) {
	if tax == nil {
		return nil, fmt.Errorf("taxonomy is required")
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	categorizations, err := meter.Int64Counter("resolvd.categorizations",
		metric.WithDescription("Tickets categorized, by method"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating counter: %w", err)
	}

	return &Service{
		taxonomy:        tax,
		embedder:        embedder,
		llm:             llm,
		config:          config,
		logger:          logger,
		categorizations: categorizations,
	}, nil
}

// Categorize assigns a category to the ticket text. It never fails:
// every internal fault degrades toward the default category.
func (s *Service) Categorize(ctx context.Context, text string) Result {
	ctx, span := tracer.Start(ctx, "Service.Categorize")
	defer span.End()

	result := s.categorize(ctx, text)

	span.SetAttributes(
		attribute.String("category", result.Category),
		attribute.String("method", string(result.Method)),
	)
	s.categorizations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(result.Method)),
	))
	s.logger.Debug("categorized ticket",
		zap.String("category", result.Category),
		zap.String("method", string(result.Method)),
		zap.Float64("confidence", result.Confidence),
	)
	return result
}

func (s *Service) categorize(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Category: taxonomy.Fallback, Method: MethodDefault, Confidence: 0}
	}

	if res, ok := s.scorePatterns(text); ok {
		return res
	}

	if s.embedder != nil {
		if res, ok := s.matchSemantic(ctx, text); ok {
			return res
		}
	}

	if s.llm != nil {
		if res, ok := s.askProvider(ctx, text); ok {
			return res
		}
	}

	return Result{Category: taxonomy.Fallback, Method: MethodDefault, Confidence: 0}
}

// scorePatterns scores the ticket against every category's keywords and
// regex patterns. Keyword hits count once, pattern hits twice. The
// strictly highest non-zero score wins; ties break toward the category
// declared earlier in the taxonomy's priority order.
func (s *Service) scorePatterns(text string) (Result, bool) {
	lower := strings.ToLower(text)

	best := -1
	bestScore := 0
	for i, cat := range s.taxonomy.Categories() {
		score := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, pattern := range cat.Patterns {
			if pattern.MatchString(text) {
				score += 2
			}
		}
		// Strict > keeps the earlier category on ties.
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 {
		return Result{}, false
	}

	confidence := float64(bestScore) / 10
	if confidence > 1 {
		confidence = 1
	}
	return Result{
		Category:   s.taxonomy.Categories()[best].Name,
		Method:     MethodPattern,
		Confidence: confidence,
	}, true
}

// matchSemantic embeds the ticket and compares it against one canonical
// example per category, accepting the best match above the threshold.
// Any embedding failure disables this layer for the call.
func (s *Service) matchSemantic(ctx context.Context, text string) (Result, bool) {
	examples, err := s.exampleEmbeddings(ctx)
	if err != nil {
		s.logger.Warn("embedding examples unavailable, skipping semantic match", zap.Error(err))
		return Result{}, false
	}

	ticketVec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		s.logger.Warn("ticket embedding failed, skipping semantic match", zap.Error(err))
		return Result{}, false
	}

	best := -1
	bestSim := s.config.SemanticThreshold
	for i, vec := range examples {
		if vec == nil {
			continue
		}
		if sim := embeddings.CosineSimilarity(ticketVec, vec); sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	if best < 0 {
		return Result{}, false
	}

	return Result{
		Category:   s.taxonomy.Categories()[best].Name,
		Method:     MethodEmbedding,
		Confidence: bestSim,
	}, true
}

// exampleEmbeddings lazily embeds the taxonomy's canonical examples and
// caches the vectors. Categories without an example get a nil vector.
func (s *Service) exampleEmbeddings(ctx context.Context) ([][]float32, error) {
	s.exampleMu.Lock()
	defer s.exampleMu.Unlock()

	if s.exampleVectors != nil {
		return s.exampleVectors, nil
	}

	cats := s.taxonomy.Categories()
	texts := make([]string, 0, len(cats))
	idx := make([]int, 0, len(cats))
	for i, cat := range cats {
		if cat.Example == "" {
			continue
		}
		texts = append(texts, cat.Example)
		idx = append(idx, i)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("taxonomy has no example sentences")
	}

	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding examples: %w", err)
	}

	vectors := make([][]float32, len(cats))
	for n, i := range idx {
		vectors[i] = vecs[n]
	}
	s.exampleVectors = vectors
	return vectors, nil
}

// askProvider asks the reasoning provider to pick exactly one label.
// The answer is normalized and accepted only when it exactly or fuzzy
// matches a taxonomy entry.
func (s *Service) askProvider(ctx context.Context, text string) (Result, bool) {
	names := make([]string, 0, len(s.taxonomy.Categories()))
	for _, cat := range s.taxonomy.Categories() {
		names = append(names, cat.Name)
	}

	prompt := fmt.Sprintf(
		"Classify this support ticket into exactly one category.\n"+
			"Categories: %s\n\n"+
			"Ticket: %s\n\n"+
			"Answer with only the category name.",
		strings.Join(names, ", "), text,
	)

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("provider categorization failed", zap.Error(err))
		return Result{}, false
	}

	// Providers sometimes answer in prose; use the first line.
	if i := strings.IndexByte(answer, '\n'); i >= 0 {
		answer = answer[:i]
	}

	category, ok := s.taxonomy.Match(answer)
	if !ok {
		s.logger.Warn("provider returned label outside taxonomy",
			zap.String("answer", answer),
		)
		return Result{}, false
	}

	return Result{Category: category, Method: MethodLLM, Confidence: 0.75}, true
}
