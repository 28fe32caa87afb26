package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var qdrantTracer = otel.Tracer("resolvd.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname. Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (6334, not the 6333 REST port).
	Port int

	// CollectionName is the collection holding knowledge base chunks.
	CollectionName string

	// VectorSize is the embedding dimensionality. Must match the embedder.
	VectorSize uint64

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the retry budget for transient failures. Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt. Default: 1s
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes. Default: 50MB
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if err := ValidateCollectionName(c.CollectionName); err != nil {
		return err
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// isTransientError reports whether a gRPC error is worth retrying.
func isTransientError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is a Store backed by Qdrant's native gRPC client. The gRPC
// transport avoids the HTTP layer's payload limits during bulk ingestion.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger
}

// NewQdrantStore connects to Qdrant, verifies the connection with a health
// check, and ensures the configured collection exists.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
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
	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext, insecure for production")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("qdrant vector store ready",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.CollectionName),
	)

	return store, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.CollectionName)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.config.CollectionName, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.CollectionName, err)
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on
// transient gRPC failures.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// AddDocuments embeds and upserts documents, returning their IDs.
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.AddDocuments")
	defer span.End()

	span.SetAttributes(
		attribute.Int("document_count", len(docs)),
		attribute.String("collection", s.config.CollectionName),
	)

	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	embs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		if ids[i] == "" {
			ids[i] = fmt.Sprintf("doc_%d_%d", time.Now().UnixNano(), i)
		}

		payload := map[string]*qdrant.Value{
			"content": {Kind: &qdrant.Value_StringValue{StringValue: doc.Content}},
			"id":      {Kind: &qdrant.Value_StringValue{StringValue: ids[i]}},
		}
		for k, v := range doc.Metadata {
			switch val := v.(type) {
			case string:
				payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
			case int:
				payload[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
			case int64:
				payload[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
			case float64:
				payload[k] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
			case bool:
				payload[k] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
			}
		}

		// Qdrant point IDs must be UUIDs; the logical ID lives in payload["id"].
		pointID := ids[i]
		if _, err := uuid.Parse(pointID); err != nil {
			pointID = uuid.New().String()
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID),
			Vectors: qdrant.NewVectors(embs[i]...),
			Payload: payload,
		}
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.CollectionName,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("upserting points: %w", err)
	}

	span.SetAttributes(attribute.Int("points_added", len(ids)))
	span.SetStatus(codes.Ok, "success")
	return ids, nil
}

// Search returns up to k documents most similar to the query.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.CollectionName),
		attribute.Int("k", k),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.CollectionName,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", s.config.CollectionName, err)
	}

	results := make([]SearchResult, len(points))
	for i, point := range points {
		result := SearchResult{Score: point.Score}
		if point.Payload != nil {
			result.Metadata = make(map[string]interface{})
			for key, v := range point.Payload {
				switch val := v.Kind.(type) {
				case *qdrant.Value_StringValue:
					result.Metadata[key] = val.StringValue
					switch key {
					case "content":
						result.Content = val.StringValue
					case "id":
						result.ID = val.StringValue
					}
				case *qdrant.Value_IntegerValue:
					result.Metadata[key] = val.IntegerValue
				case *qdrant.Value_DoubleValue:
					result.Metadata[key] = val.DoubleValue
				case *qdrant.Value_BoolValue:
					result.Metadata[key] = val.BoolValue
				}
			}
		}
		results[i] = result
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	var count uint64
	err := s.retryOperation(ctx, "count", func() error {
		n, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.config.CollectionName,
		})
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
