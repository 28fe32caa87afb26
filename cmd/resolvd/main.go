// Resolvd is a support ticket resolution daemon with an HTTP API.
//
// This binary starts the resolvd HTTP server with full pipeline
// initialization: ticket categorization, knowledge base retrieval, web
// search enrichment, and the tiered solution cascade.
//
// Configuration is loaded from a YAML file plus environment variables.
// See internal/config for details.
//
// Usage:
//
//	# Start server with defaults (embedded vector store, built-in taxonomy)
//	resolvd
//
//	# Start with a config file
//	resolvd -config /etc/resolvd/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9090 resolvd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/resolvd/internal/categorize"
	"github.com/fyrsmithlabs/resolvd/internal/config"
	"github.com/fyrsmithlabs/resolvd/internal/embeddings"
	httpapi "github.com/fyrsmithlabs/resolvd/internal/http"
	"github.com/fyrsmithlabs/resolvd/internal/kb"
	"github.com/fyrsmithlabs/resolvd/internal/logging"
	"github.com/fyrsmithlabs/resolvd/internal/provider"
	"github.com/fyrsmithlabs/resolvd/internal/resolve"
	"github.com/fyrsmithlabs/resolvd/internal/taxonomy"
	"github.com/fyrsmithlabs/resolvd/internal/telemetry"
	"github.com/fyrsmithlabs/resolvd/internal/vectorstore"
	"github.com/fyrsmithlabs/resolvd/internal/websearch"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  resolvd           Start the resolvd daemon\n")
			fmt.Fprintf(os.Stderr, "  resolvd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("resolvd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the resolvd server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes logger and telemetry
//  3. Creates the embedding service and vector store (when enabled)
//  4. Loads the taxonomy and knowledge base
//  5. Builds reasoning providers and the resolution pipeline
//  6. Starts the HTTP server
//  7. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting resolvd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Insecure:       cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info("Dependencies initialized",
		zap.Bool("vectorstore_ready", deps.store != nil),
		zap.Int("stored_solutions", deps.solutions.Len()),
		zap.Bool("web_search", deps.search.IsAvailable()),
		zap.Int("providers", len(deps.providers)))

	pipeline, err := initPipeline(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}

	if cfg.KnowledgeBase.Watch && deps.solutions.Path() != "" {
		watcher, err := kb.NewWatcher(deps.solutions, logger)
		if err != nil {
			logger.Warn("Failed to watch solutions file", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("Failed to start solutions watcher", zap.Error(err))
		} else {
			defer watcher.Stop()
			logger.Info("Watching solutions file",
				zap.String("path", deps.solutions.Path()))
		}
	}

	srv, err := httpapi.NewServer(pipeline, logger, httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// dependencies holds the pipeline's infrastructure dependencies.
type dependencies struct {
	taxonomy  *taxonomy.Taxonomy
	embedder  *embeddings.Service
	store     vectorstore.Store
	solutions *kb.Solutions
	retriever *kb.Retriever
	search    *websearch.Client
	providers []provider.Provider
	logger    *zap.Logger
}

// Close releases infrastructure resources.
func (d *dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("Vector store close failed", zap.Error(err))
		}
	}
}

// initDependencies builds everything the pipeline depends on. The
// embedding service, vector store, web search, and reasoning providers
// are all optional: whatever is missing simply narrows the cascade.
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	tax, err := loadTaxonomy(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}

	var embedder *embeddings.Service
	var store vectorstore.Store
	if cfg.Embeddings.Enabled {
		embedder, err = embeddings.NewService(embeddings.Config{
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
			APIKey:  cfg.Embeddings.APIKey.Value(),
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding service: %w", err)
		}

		store, err = vectorstore.NewStore(cfg, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("creating vector store: %w", err)
		}

		logger.Info("Vector store initialized",
			zap.String("provider", cfg.VectorStore.Provider),
			zap.String("embedding_model", cfg.Embeddings.Model))
	} else {
		logger.Info("Embeddings disabled, running without semantic retrieval")
	}

	solutions, err := kb.LoadSolutions(cfg.KnowledgeBase.SolutionsPath)
	if err != nil {
		return nil, fmt.Errorf("loading solutions: %w", err)
	}

	var searcher kb.Searcher
	if store != nil {
		searcher = store
	}
	retriever := kb.NewRetriever(searcher, cfg.KnowledgeBase.RetrievalK, logger)

	searchCfg := websearch.Config{
		BaseURL:    cfg.WebSearch.BaseURL,
		MaxResults: cfg.WebSearch.MaxResults,
		Timeout:    cfg.WebSearch.Timeout.Duration(),
	}
	if cfg.WebSearch.Enabled {
		searchCfg.APIKey = cfg.WebSearch.APIKey.Value()
	}
	search := websearch.NewClient(searchCfg, logger)

	providers, err := provider.NewAll(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("creating providers: %w", err)
	}

	return &dependencies{
		taxonomy:  tax,
		embedder:  embedder,
		store:     store,
		solutions: solutions,
		retriever: retriever,
		search:    search,
		providers: providers,
		logger:    logger,
	}, nil
}

// initPipeline wires the categorizer and the resolution cascade.
func initPipeline(cfg *config.Config, deps *dependencies, logger *zap.Logger) (*resolve.Pipeline, error) {
	var catEmbedder categorize.Embedder
	if deps.embedder != nil {
		catEmbedder = deps.embedder
	}
	var catLLM categorize.Completer
	if len(deps.providers) > 0 {
		catLLM = deps.providers[0]
	}

	categorizer, err := categorize.NewService(deps.taxonomy, catEmbedder, catLLM, categorize.Config{
		SemanticThreshold: cfg.Pipeline.SemanticThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating categorizer: %w", err)
	}

	completers := make([]resolve.Completer, 0, len(deps.providers))
	for _, p := range deps.providers {
		completers = append(completers, p)
	}

	return resolve.NewPipeline(resolve.Config{
		TierTimeout:     cfg.Pipeline.TierTimeout.Duration(),
		MaxContextChars: cfg.Pipeline.MaxContextChars,
		UseWebSearch:    cfg.Pipeline.UseWebSearch,
	}, categorizer, deps.solutions, deps.retriever, deps.search, completers, logger)
}

// loadTaxonomy loads the taxonomy from the configured path, falling
// back to the built-in category set.
func loadTaxonomy(cfg *config.Config) (*taxonomy.Taxonomy, error) {
	if cfg.Taxonomy.Path == "" {
		return taxonomy.Default(), nil
	}
	return taxonomy.Load(cfg.Taxonomy.Path)
}
