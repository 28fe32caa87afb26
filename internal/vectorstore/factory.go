package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/resolvd/internal/config"
	"go.uber.org/zap"
)

// NewStore creates a Store based on the configured provider:
//   - "chromem" (default): embedded ChromemStore, no external dependencies
//   - "qdrant": QdrantStore over native gRPC, requires a running server
func NewStore(cfg *config.Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.VectorStore.Provider {
	case "chromem", "":
		chromemCfg := ChromemConfig{
			Path:       cfg.VectorStore.Chromem.Path,
			Compress:   cfg.VectorStore.Chromem.Compress,
			Collection: cfg.VectorStore.Chromem.Collection,
			VectorSize: cfg.VectorStore.Chromem.VectorSize,
		}
		return NewChromemStore(chromemCfg, embedder, logger)

	case "qdrant":
		qdrantCfg := QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		}
		return NewQdrantStore(qdrantCfg, embedder, logger)

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", cfg.VectorStore.Provider)
	}
}
