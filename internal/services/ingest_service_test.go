package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anydocai/docpipe/internal/config"
	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/core/chunker"
	"github.com/anydocai/docpipe/internal/core/ingestion_engine"
	"github.com/anydocai/docpipe/internal/core/segmenter"
	"github.com/anydocai/docpipe/internal/core/tenant"
	"github.com/anydocai/docpipe/internal/core/vectordb"
	"github.com/anydocai/docpipe/internal/models"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func newTestService(t *testing.T, store core.VectorStore) *IngestService {
	t.Helper()

	patterns, err := segmenter.CompilePatterns(config.DefaultHeadingPatterns)
	require.NoError(t, err)

	selector := chunker.NewSelector(chunker.Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Topic: segmenter.TopicConfig{
			MaxChunkSize:  2000,
			MinChunkSize:  100,
			HeadingMaxLen: 100,
			Patterns:      patterns,
		},
		MaxOversizedRatio:  0.30,
		MaxUndersizedRatio: 0.50,
	})
	resolver := tenant.NewResolver(store, "AnyDocChunk", 3)
	pipeline := ingestion_engine.NewPipeline(stubEmbedder{}, store, ingestion_engine.Config{
		BatchSize:  50,
		MaxRetries: 5,
		Backoff:    func(int) time.Duration { return 0 },
	})
	return NewIngestService(selector, resolver, pipeline)
}

func TestProcessDocument_TwoPageDocument(t *testing.T) {
	store := vectordb.NewMemoryStore()
	svc := newTestService(t, store)

	doc := models.Document{
		ID:      "doc-1",
		OwnerID: "user-1234",
		Kind:    models.KindPDF,
		Pages: []string{
			"# Intro\nHello world.",
			"Some more plain text without headings.",
		},
	}

	result, err := svc.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, "doc-1", result.DocumentID)
	require.Equal(t, models.StrategyTopicBased, result.Strategy)
	require.Equal(t, 2, result.ChunksTotal)
	require.Equal(t, 2, result.ChunksIndexed)
	require.Empty(t, result.FailedBatches)

	records := store.Records("AnyDocChunk_user1234")
	require.Len(t, records, 2)

	byIndex := map[int]models.Chunk{}
	for _, r := range records {
		byIndex[r.Chunk.Index] = r.Chunk
	}
	require.Equal(t, "Intro", byIndex[0].Heading)
	require.Equal(t, 1, byIndex[0].PageNumber)
	require.Empty(t, byIndex[1].Heading)
	require.Equal(t, 2, byIndex[1].PageNumber)
}

func TestProcessDocument_NoExtractableText(t *testing.T) {
	store := vectordb.NewMemoryStore()
	svc := newTestService(t, store)

	doc := models.Document{
		ID:      "doc-empty",
		OwnerID: "user-1234",
		Kind:    models.KindText,
		Pages:   []string{"", "   \n  "},
	}

	result, err := svc.ProcessDocument(context.Background(), doc)
	require.ErrorIs(t, err, core.ErrNoExtractableText)
	require.Zero(t, result.ChunksTotal)
	require.Zero(t, result.ChunksIndexed)

	exists, err := store.CollectionExists(context.Background(), "AnyDocChunk_user1234")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestProcessDocument_LargeDocumentBatches(t *testing.T) {
	store := vectordb.NewMemoryStore()
	svc := newTestService(t, store)

	// Plain text without headings and one giant run-on page forces the
	// fixed-size path with many chunks.
	doc := models.Document{
		ID:      "doc-big",
		OwnerID: "user-5678",
		Kind:    models.KindSpreadsheet,
		Pages:   []string{strings.Repeat("cell value ", 12000)},
	}

	result, err := svc.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, models.StrategyFixedSize, result.Strategy)
	require.Greater(t, result.ChunksTotal, 50)
	require.Equal(t, result.ChunksTotal, result.ChunksIndexed)
	require.Equal(t, result.ChunksTotal, store.Count("AnyDocChunk_user5678"))
}
