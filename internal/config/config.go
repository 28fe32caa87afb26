// Package config provides configuration loading for resolvd.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables. Defaults are applied for anything left unset, so a bare
// `resolvd` invocation works with zero configuration: the built-in taxonomy,
// the embedded chromem vector store, and the static template tier.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/resolvd/internal/logging"
)

// Config holds the complete resolvd configuration.
type Config struct {
	Server        ServerConfig     `koanf:"server"`
	Logging       logging.Config   `koanf:"logging"`
	Telemetry     TelemetryConfig  `koanf:"telemetry"`
	Taxonomy      TaxonomyConfig   `koanf:"taxonomy"`
	KnowledgeBase KBConfig         `koanf:"knowledge_base"`
	Embeddings    EmbeddingsConfig `koanf:"embeddings"`
	VectorStore   VectorStoreConfig `koanf:"vectorstore"`
	Qdrant        QdrantConfig     `koanf:"qdrant"`
	Providers     []ProviderConfig `koanf:"providers"`
	WebSearch     WebSearchConfig  `koanf:"websearch"`
	Pipeline      PipelineConfig   `koanf:"pipeline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
// Disabled by default for users without an OTLP collector.
type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Endpoint       string `koanf:"endpoint"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
	Insecure       bool   `koanf:"insecure"`
}

// TaxonomyConfig holds category taxonomy configuration.
type TaxonomyConfig struct {
	// Path is an optional YAML file defining the taxonomy.
	// Empty means the built-in taxonomy.
	Path string `koanf:"path"`
}

// KBConfig holds knowledge base configuration.
type KBConfig struct {
	// SolutionsPath is an optional YAML file mapping category -> stored solution.
	SolutionsPath string `koanf:"solutions_path"`

	// RetrievalK is the number of passages fetched per query.
	RetrievalK int `koanf:"retrieval_k"`

	// Watch reloads the solutions file on change.
	Watch bool `koanf:"watch"`
}

// EmbeddingsConfig holds embedding service configuration.
// The endpoint must be OpenAI-compatible (OpenAI, TEI, etc.).
type EmbeddingsConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// VectorStoreConfig holds vector store configuration.
type VectorStoreConfig struct {
	// Provider selects the backend: "chromem" (embedded, default) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
}

// ChromemConfig holds chromem-go embedded store configuration.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// QdrantConfig holds Qdrant gRPC client configuration.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	CollectionName string `koanf:"collection_name"`
	VectorSize     uint64 `koanf:"vector_size"`
}

// ProviderConfig describes one reasoning provider in cascade order.
type ProviderConfig struct {
	// Name labels the provider in results and logs (e.g. "openai-primary").
	Name string `koanf:"name"`

	// Type selects the client: "openai" or "ollama".
	Type string `koanf:"type"`

	Model   string   `koanf:"model"`
	BaseURL string   `koanf:"base_url"`
	APIKey  Secret   `koanf:"api_key"`
	Timeout Duration `koanf:"timeout"`
}

// WebSearchConfig holds web search enrichment configuration.
type WebSearchConfig struct {
	Enabled    bool     `koanf:"enabled"`
	APIKey     Secret   `koanf:"api_key"`
	BaseURL    string   `koanf:"base_url"`
	MaxResults int      `koanf:"max_results"`
	Timeout    Duration `koanf:"timeout"`
}

// PipelineConfig holds resolution pipeline tuning.
type PipelineConfig struct {
	// TierTimeout bounds each external tier call.
	TierTimeout Duration `koanf:"tier_timeout"`

	// MaxContextChars bounds the composed context block.
	MaxContextChars int `koanf:"max_context_chars"`

	// SemanticThreshold is the minimum cosine similarity for the
	// embedding categorization fallback.
	SemanticThreshold float64 `koanf:"semantic_threshold"`

	// UseWebSearch enables web enrichment during resolution.
	UseWebSearch bool `koanf:"use_web_search"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8092
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{"service": "resolvd"}
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "resolvd"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "0.1.0"
	}

	if cfg.KnowledgeBase.RetrievalK == 0 {
		cfg.KnowledgeBase.RetrievalK = 5
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.config/resolvd/vectorstore"
	}
	if cfg.VectorStore.Chromem.Collection == "" {
		cfg.VectorStore.Chromem.Collection = "resolvd_kb"
	}
	if cfg.VectorStore.Chromem.VectorSize == 0 {
		cfg.VectorStore.Chromem.VectorSize = 384 // bge-small-en-v1.5 dimensions
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = "resolvd_kb"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 384
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = Duration(15 * time.Second)
		}
	}

	if cfg.WebSearch.BaseURL == "" {
		cfg.WebSearch.BaseURL = "https://api.tavily.com"
	}
	if cfg.WebSearch.MaxResults == 0 {
		cfg.WebSearch.MaxResults = 3
	}
	if cfg.WebSearch.Timeout == 0 {
		cfg.WebSearch.Timeout = Duration(10 * time.Second)
	}

	if cfg.Pipeline.TierTimeout == 0 {
		cfg.Pipeline.TierTimeout = Duration(15 * time.Second)
	}
	if cfg.Pipeline.MaxContextChars == 0 {
		cfg.Pipeline.MaxContextChars = 1000
	}
	if cfg.Pipeline.SemanticThreshold == 0 {
		cfg.Pipeline.SemanticThreshold = 0.5
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("telemetry service name required when telemetry is enabled")
	}

	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", c.VectorStore.Provider)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return errors.New("provider name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name: %s", p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case "openai", "ollama":
		default:
			return fmt.Errorf("provider %s: unsupported type %q (supported: openai, ollama)", p.Name, p.Type)
		}
	}

	if c.WebSearch.Enabled && !c.WebSearch.APIKey.IsSet() {
		return errors.New("websearch api_key required when websearch is enabled")
	}

	if c.Pipeline.SemanticThreshold < 0 || c.Pipeline.SemanticThreshold > 1 {
		return fmt.Errorf("semantic threshold must be in [0,1], got %v", c.Pipeline.SemanticThreshold)
	}

	return nil
}
