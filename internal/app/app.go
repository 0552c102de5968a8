package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anydocai/docpipe/internal/config"
	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/core/chunker"
	"github.com/anydocai/docpipe/internal/core/extractor"
	"github.com/anydocai/docpipe/internal/core/ingestion_engine"
	"github.com/anydocai/docpipe/internal/core/llm"
	objectclient "github.com/anydocai/docpipe/internal/core/object-client"
	"github.com/anydocai/docpipe/internal/core/segmenter"
	"github.com/anydocai/docpipe/internal/core/tenant"
	"github.com/anydocai/docpipe/internal/core/vectordb"
	"github.com/anydocai/docpipe/internal/services"
)

type App struct {
	VectorStore  core.VectorStore
	ObjectClient *objectclient.S3Client
	Ingestor     *ingestion_engine.DocumentIngestor
	Server       *Server

	embedder *llm.GeminiEmbedder
	workers  int
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := newVectorStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Vector store (%s) initialized and ready.", cfg.VectorStore)

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	patterns, err := segmenter.CompilePatterns(cfg.HeadingPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid heading pattern: %w", err)
	}

	selector := chunker.NewSelector(chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Topic: segmenter.TopicConfig{
			MaxChunkSize:  cfg.MaxChunkSize,
			MinChunkSize:  cfg.MinChunkSize,
			HeadingMaxLen: cfg.HeadingMaxLen,
			Patterns:      patterns,
		},
		MaxOversizedRatio:  cfg.MaxOversizedRatio,
		MaxUndersizedRatio: cfg.MaxUndersizedRatio,
	})

	resolver := tenant.NewResolver(store, cfg.CollectionBase, cfg.EmbedDim)
	pipeline := ingestion_engine.NewPipeline(embedder, store, ingestion_engine.Config{
		BatchSize:  cfg.BatchSize,
		MaxRetries: cfg.MaxRetries,
	})
	ingestSvc := services.NewIngestService(selector, resolver, pipeline)

	docExtractor := extractor.NewDocconvExtractor(false)
	ingestor := ingestion_engine.NewDocumentIngestor(objClient, docExtractor, ingestSvc)

	server := NewServer(cfg, ingestSvc, objClient, ingestor)

	return &App{
		VectorStore:  store,
		ObjectClient: objClient,
		Ingestor:     ingestor,
		Server:       server,
		embedder:     embedder,
		workers:      cfg.IngestWorkers,
	}, nil
}

// StartWorkers runs the background ingestion workers until ctx is cancelled.
func (a *App) StartWorkers(ctx context.Context) {
	go a.Ingestor.Start(ctx, a.workers)
	log.Printf("Started %d ingestion workers.", a.workers)
}

func (a *App) Close() {
	if a.VectorStore != nil {
		_ = a.VectorStore.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}

func newVectorStore(ctx context.Context, cfg *config.Config) (core.VectorStore, error) {
	switch cfg.VectorStore {
	case "pgvector":
		return vectordb.NewPgVectorStore(ctx, cfg)
	case "weaviate":
		return vectordb.NewWeaviateStore(vectordb.WeaviateConfig{
			URL:    cfg.WeaviateURL,
			APIKey: cfg.WeaviateAPIKey,
		}), nil
	case "memory":
		return vectordb.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VectorStore)
	}
}
