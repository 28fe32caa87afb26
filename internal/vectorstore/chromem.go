package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("resolvd.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the on-disk persistence directory. Supports "~" expansion.
	Path string

	// Compress enables gzip compression of persisted collections.
	Compress bool

	// Collection is the collection holding knowledge base chunks.
	Collection string

	// VectorSize is the embedding dimensionality. Must match the embedder.
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/resolvd/vectorstore"
	}
	if c.Collection == "" {
		c.Collection = "resolvd_kb"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path required", ErrInvalidConfig)
	}
	if err := ValidateCollectionName(c.Collection); err != nil {
		return err
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore is a Store backed by the embedded chromem-go database.
// It persists to local disk and requires no external service, which
// makes it the default backend.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *zap.Logger
}

// NewChromemStore opens (or creates) a persistent chromem database at the
// configured path and ensures the configured collection exists.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem database at %s: %w", path, err)
	}

	store := &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	if _, err := db.GetOrCreateCollection(config.Collection, nil, store.embeddingFunc()); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", config.Collection, err)
	}

	logger.Info("chromem vector store ready",
		zap.String("path", path),
		zap.String("collection", config.Collection),
	)

	return store, nil
}

// expandPath expands a leading "~" to the user's home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// embeddingFunc bridges the Embedder interface to chromem's callback.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *ChromemStore) collection() (*chromem.Collection, error) {
	col := s.db.GetCollection(s.config.Collection, s.embeddingFunc())
	if col == nil {
		return nil, ErrCollectionNotFound
	}
	return col, nil
}

// AddDocuments embeds and stores documents, returning their IDs.
func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AddDocuments")
	defer span.End()

	span.SetAttributes(attribute.Int("document_count", len(docs)))

	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		if ids[i] == "" {
			ids[i] = fmt.Sprintf("doc_%d_%d", time.Now().UnixNano(), i)
		}
		texts[i] = doc.Content
	}

	// Batch embed up front; chromem then stores precomputed vectors.
	embs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        ids[i],
			Content:   doc.Content,
			Metadata:  metadataToString(doc.Metadata),
			Embedding: embs[i],
		}
	}

	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("added documents to chromem",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(docs)),
	)
	return ids, nil
}

// Search returns up to k documents most similar to the query.
func (s *ChromemStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("k", k),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// chromem requires nResults <= document count.
	docCount := col.Count()
	if docCount == 0 {
		return []SearchResult{}, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: metadataFromString(r.Metadata),
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(searchResults)))
	span.SetStatus(codes.Ok, "success")
	return searchResults, nil
}

// Count returns the number of documents in the collection.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	col, err := s.collection()
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Close is a no-op; chromem persists synchronously on write.
func (s *ChromemStore) Close() error {
	return nil
}

// metadataToString converts metadata to chromem's string-only format.
func metadataToString(metadata map[string]interface{}) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// metadataFromString converts chromem metadata back to the generic form.
func metadataFromString(metadata map[string]string) map[string]interface{} {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
