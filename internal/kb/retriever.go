package kb

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/vectorstore"
)

var tracer = otel.Tracer("resolvd.kb")

// DefaultRetrievalK is the number of passages fetched per query when the
// caller does not ask for a specific count.
const DefaultRetrievalK = 5

// Passage is one retrieved knowledge base snippet with provenance.
type Passage struct {
	Content string
	Source  string
	Score   float32
}

// Searcher is the slice of the vector store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error)
	Count(ctx context.Context) (int, error)
}

// Retriever performs semantic search over ingested knowledge passages.
// A nil or failing store degrades to empty results: retrieval being
// unavailable must never fail a resolution.
type Retriever struct {
	store  Searcher
	k      int
	logger *zap.Logger
}

// NewRetriever creates a Retriever. store may be nil, in which case every
// retrieval returns empty.
func NewRetriever(store Searcher, k int, logger *zap.Logger) *Retriever {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, k: k, logger: logger}
}

// Available reports whether a backing store is configured.
func (r *Retriever) Available() bool {
	return r.store != nil
}

// Retrieve returns up to k passages relevant to the query, ordered by
// descending similarity. Unavailable or failing retrieval yields an
// empty slice, never an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) []Passage {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()

	if r.store == nil || query == "" {
		return nil
	}

	results, err := r.store.Search(ctx, query, r.k)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("knowledge retrieval failed, continuing without passages",
			zap.Error(err),
		)
		return nil
	}

	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		source := "knowledge_base"
		if s, ok := res.Metadata["source"].(string); ok && s != "" {
			source = s
		}
		passages = append(passages, Passage{
			Content: res.Content,
			Source:  source,
			Score:   res.Score,
		})
	}

	span.SetAttributes(attribute.Int("passages", len(passages)))
	return passages
}

// Count returns the number of ingested passages, 0 when unavailable.
func (r *Retriever) Count(ctx context.Context) int {
	if r.store == nil {
		return 0
	}
	n, err := r.store.Count(ctx)
	if err != nil {
		return 0
	}
	return n
}
