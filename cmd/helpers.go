package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/config"
	"github.com/fixxit/machdocs/internal/db"
	"github.com/fixxit/machdocs/internal/embeddings"
	"github.com/fixxit/machdocs/internal/keyword"
	"github.com/fixxit/machdocs/internal/search"
	"github.com/fixxit/machdocs/internal/vectorstore"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `machdocs init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// stores bundles the opened persistence layers of one command invocation.
type stores struct {
	db       *db.DB
	catalog  *catalog.Store
	keywords *keyword.Index
	vectors  vectorstore.Store
	embedder embeddings.Embedder
}

// openStores opens the database and the vector store from the configured
// data directory. Loading a missing vector store is fine on first run.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	vectors, err := vectorstore.NewChromemStore(embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := vectors.Load(ctx, cfg.VectorDir()); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "No existing vector store found: %v\n", err)
	}

	return &stores{
		db:       database,
		catalog:  catalog.NewStore(database),
		keywords: keyword.NewIndex(database),
		vectors:  vectors,
		embedder: embedder,
	}, nil
}

func (s *stores) close() {
	_ = s.db.Close()
}

func (s *stores) searchEngine(cfg *config.Config) *search.Engine {
	return search.NewEngine(s.catalog, s.keywords, s.vectors, search.Weights{
		Keyword:  cfg.KeywordWeight,
		Semantic: cfg.SemanticWeight,
	}, nil)
}
