// Package vectorstore provides embedding-backed document storage for
// knowledge base retrieval. Two backends are supported: chromem-go for
// embedded zero-dependency persistence (the default) and Qdrant over
// native gRPC for deployments that already run one.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors returned by store implementations.
var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrInvalidCollectionName = errors.New("invalid collection name")
	ErrEmptyDocuments        = errors.New("documents cannot be empty")
	ErrEmbeddingFailed       = errors.New("embedding generation failed")
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrConnectionFailed      = errors.New("connection to vector store failed")
)

// collectionNamePattern restricts collection names to lowercase letters,
// digits and underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against naming rules.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: name must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Embedder generates vector embeddings from text. Satisfied by
// embeddings.Service.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the minimal vector store surface the retrieval layer needs.
type Store interface {
	// AddDocuments embeds and stores documents, returning their IDs.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search returns up to k documents most similar to the query,
	// ordered by descending score.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
