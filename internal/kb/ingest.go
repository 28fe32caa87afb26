package kb

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/vectorstore"
)

// Chunking constants for long documents. Chunks overlap so that a
// sentence spanning a boundary still lands in one complete chunk.
const (
	chunkSize    = 500
	chunkOverlap = 50
)

// IngestDoc is one source document to index for retrieval.
type IngestDoc struct {
	// Source identifies where the document came from (file name, URL).
	Source string

	// Category optionally ties the document to a taxonomy category.
	Category string

	// Content is the full document text; long content gets chunked.
	Content string
}

// Adder is the slice of the vector store ingestion needs.
type Adder interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error)
}

// Ingester chunks documents and loads them into the vector store.
type Ingester struct {
	store  Adder
	logger *zap.Logger
}

// NewIngester creates an Ingester backed by the given store.
func NewIngester(store Adder, logger *zap.Logger) (*Ingester, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{store: store, logger: logger}, nil
}

// Ingest chunks each document and stores the chunks. Returns the number
// of chunks written.
func (in *Ingester) Ingest(ctx context.Context, docs []IngestDoc) (int, error) {
	ctx, span := tracer.Start(ctx, "Ingester.Ingest")
	defer span.End()

	var chunks []vectorstore.Document
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		for i, chunk := range splitText(content, chunkSize, chunkOverlap) {
			meta := map[string]interface{}{
				"source": doc.Source,
				"chunk":  i,
			}
			if doc.Category != "" {
				meta["category"] = doc.Category
			}
			chunks = append(chunks, vectorstore.Document{
				ID:       fmt.Sprintf("%s#%d", doc.Source, i),
				Content:  chunk,
				Metadata: meta,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Int("chunks", len(chunks)),
	)

	if len(chunks) == 0 {
		return 0, nil
	}

	if _, err := in.store.AddDocuments(ctx, chunks); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	in.logger.Info("ingested knowledge documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// splitText splits text into overlapping chunks of at most size runes,
// preferring to break at whitespace near the boundary.
func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		// Walk back to the nearest whitespace so words stay intact.
		cut := end
		for cut > start+size/2 {
			if runes[cut] == ' ' || runes[cut] == '\n' || runes[cut] == '\t' {
				break
			}
			cut--
		}
		if cut == start+size/2 {
			cut = end
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
