package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/resolvd/internal/config"
	"github.com/fyrsmithlabs/resolvd/internal/embeddings"
	"github.com/fyrsmithlabs/resolvd/internal/kb"
	"github.com/fyrsmithlabs/resolvd/internal/logging"
	"github.com/fyrsmithlabs/resolvd/internal/vectorstore"
)

var (
	// ingest command flags
	ingestConfigPath string
	ingestCategory   string
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestConfigPath, "config", "", "path to resolvd config file (YAML)")
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "", "category attached to every ingested document")
}

// ingestCmd loads knowledge documents into the vector store directly,
// bypassing the HTTP server. It uses the same configuration as the
// daemon so documents land in the collection the daemon queries.
var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-directory>...",
	Short: "Ingest knowledge documents into the vector store",
	Long: `Ingest text documents into the resolvd vector store for retrieval.

Directories are walked recursively; only .txt and .md files are indexed.
Long documents are split into overlapping chunks automatically.

Requires embeddings to be enabled in the resolvd configuration.

Examples:
  # Ingest a directory of runbooks
  resolvctl ingest --config /etc/resolvd/config.yaml ./runbooks

  # Ingest one document under a fixed category
  resolvctl ingest --config config.yaml --category network_error vpn-guide.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

// runIngest handles the ingest command
func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(ingestConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Embeddings.Enabled {
		return fmt.Errorf("embeddings are disabled in the configuration; ingestion requires an embedding service")
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	store, err := vectorstore.NewStore(cfg, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ingester, err := kb.NewIngester(store, logger)
	if err != nil {
		return fmt.Errorf("failed to create ingester: %w", err)
	}

	docs, err := collectDocuments(args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no .txt or .md documents found")
	}

	chunks, err := ingester.Ingest(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested %d documents (%d chunks)\n", len(docs), chunks)
	return nil
}

// collectDocuments reads every named file, walking directories
// recursively and keeping .txt and .md files.
func collectDocuments(paths []string) ([]kb.IngestDoc, error) {
	var docs []kb.IngestDoc

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", root, err)
		}

		if !info.IsDir() {
			doc, err := readDocument(root)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isTextDocument(path) {
				return nil
			}
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	return docs, nil
}

func readDocument(path string) (kb.IngestDoc, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return kb.IngestDoc{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return kb.IngestDoc{
		Source:   filepath.Base(path),
		Category: ingestCategory,
		Content:  string(content),
	}, nil
}

func isTextDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
