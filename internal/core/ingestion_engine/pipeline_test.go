package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/models"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = []float32{0.1, 0.2, 0.3}
	}
	return vecs, nil
}

type fakeVectorStore struct {
	mu      sync.Mutex
	writes  [][]core.VectorRecord
	written int

	// failBatch marks a zero-based write sequence position that always
	// fails; failUntil fails the first N write calls regardless.
	failBatch int
	failCount int
	failUntil int
	calls     int
	onWrite   func(successfulWrites int)
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{failBatch: -1}
}

func (f *fakeVectorStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func (f *fakeVectorStore) CreateCollection(ctx context.Context, schema core.CollectionSchema) error {
	return core.ErrCollectionExists
}

func (f *fakeVectorStore) BatchWrite(ctx context.Context, collection string, records []core.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failUntil > 0 {
		f.failUntil--
		return errors.New("write refused")
	}
	if f.failBatch >= 0 && records[0].Chunk.Index/50 == f.failBatch {
		f.failCount++
		return errors.New("write refused")
	}
	f.writes = append(f.writes, records)
	f.written += len(records)
	if f.onWrite != nil {
		f.onWrite(len(f.writes))
	}
	return nil
}

func (f *fakeVectorStore) Close() error { return nil }

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			DocumentID: "doc-1",
			OwnerID:    "owner-1",
			Content:    fmt.Sprintf("content %d", i),
			Index:      i,
			Strategy:   models.StrategyFixedSize,
		}
	}
	return chunks
}

func testCollection() models.TenantCollection {
	return models.TenantCollection{OwnerID: "owner-1", Name: "AnyDocChunk_owner1", SchemaVersion: 1}
}

func noBackoff(int) time.Duration { return 0 }

func TestPartitionBatches(t *testing.T) {
	cases := []struct {
		n, size int
		want    int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{120, 50, 3},
		{200, 50, 4},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d", tc.n), func(t *testing.T) {
			batches := partitionBatches(makeChunks(tc.n), tc.size)
			require.Len(t, batches, tc.want)

			total := 0
			next := 0
			for i, b := range batches {
				require.Equal(t, i, b.index)
				require.Equal(t, models.BatchPending, b.state)
				for _, c := range b.chunks {
					require.Equal(t, next, c.Index)
					next++
				}
				total += len(b.chunks)
			}
			require.Equal(t, tc.n, total)
		})
	}
}

func TestPipeline_AllBatchesSucceed(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newFakeVectorStore()
	p := NewPipeline(embedder, store, Config{BatchSize: 50, MaxRetries: 5, Backoff: noBackoff})

	chunks := makeChunks(120)
	result := p.Run(context.Background(), testCollection(), chunks)

	require.Equal(t, 120, result.ChunksTotal)
	require.Equal(t, 120, result.ChunksIndexed)
	require.Empty(t, result.FailedBatches)
	require.False(t, result.Cancelled)
	require.Equal(t, 3, embedder.calls)
	require.Equal(t, 120, store.written)
	require.Equal(t, "doc-1", result.DocumentID)
	require.Equal(t, models.StrategyFixedSize, result.Strategy)
}

func TestPipeline_SetsEmbeddingIDOnSuccess(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newFakeVectorStore()
	p := NewPipeline(embedder, store, Config{BatchSize: 10, MaxRetries: 5, Backoff: noBackoff})

	chunks := makeChunks(25)
	p.Run(context.Background(), testCollection(), chunks)

	seen := make(map[string]bool)
	for _, c := range chunks {
		require.NotEmpty(t, c.EmbeddingID)
		require.False(t, seen[c.EmbeddingID])
		seen[c.EmbeddingID] = true
	}
}

func TestPipeline_TransientFailureRecoversWithOneWrite(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newFakeVectorStore()
	store.failUntil = 3 // fails attempts 1..3, succeeds on 4
	p := NewPipeline(embedder, store, Config{BatchSize: 50, MaxRetries: 5, Backoff: noBackoff})

	result := p.Run(context.Background(), testCollection(), makeChunks(40))

	require.Equal(t, 40, result.ChunksIndexed)
	require.Empty(t, result.FailedBatches)
	require.Equal(t, 4, store.calls)
	require.Len(t, store.writes, 1)
}

func TestPipeline_PersistentBatchFailureDoesNotBlockOthers(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newFakeVectorStore()
	store.failBatch = 2 // the 20-chunk tail batch never writes
	p := NewPipeline(embedder, store, Config{BatchSize: 50, MaxRetries: 5, Backoff: noBackoff})

	chunks := makeChunks(120)
	result := p.Run(context.Background(), testCollection(), chunks)

	require.Equal(t, 120, result.ChunksTotal)
	require.Equal(t, 100, result.ChunksIndexed)
	require.Equal(t, []int{2}, result.FailedBatches)
	require.False(t, result.Cancelled)
	require.Equal(t, 5, store.failCount)

	for _, c := range chunks[:100] {
		require.NotEmpty(t, c.EmbeddingID)
	}
	for _, c := range chunks[100:] {
		require.Empty(t, c.EmbeddingID)
	}
}

func TestPipeline_EmbeddingFailureRecordsBatchFailed(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	store := newFakeVectorStore()
	p := NewPipeline(embedder, store, Config{BatchSize: 50, MaxRetries: 3, Backoff: noBackoff})

	result := p.Run(context.Background(), testCollection(), makeChunks(60))

	require.Equal(t, 0, result.ChunksIndexed)
	require.Equal(t, []int{0, 1}, result.FailedBatches)
	require.Equal(t, 6, embedder.calls)
	require.Equal(t, 0, store.calls)
}

func TestPipeline_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	embedder := &fakeEmbedder{}
	store := newFakeVectorStore()
	p := NewPipeline(embedder, store, Config{BatchSize: 10, MaxRetries: 5, Backoff: noBackoff})

	// Cancel during the second successful write; the third batch must not start.
	store.onWrite = func(successfulWrites int) {
		if successfulWrites == 2 {
			cancel()
		}
	}

	result := p.Run(ctx, testCollection(), makeChunks(100))

	require.True(t, result.Cancelled)
	require.Equal(t, 20, result.ChunksIndexed)
	require.Equal(t, 20, store.written)
	require.Empty(t, result.FailedBatches)
}

func TestPipeline_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	embedder := &fakeEmbedder{}
	store := newFakeVectorStore()
	store.failUntil = 100
	p := NewPipeline(embedder, store, Config{
		BatchSize:  50,
		MaxRetries: 5,
		Backoff: func(int) time.Duration {
			cancel()
			return time.Hour
		},
	})

	result := p.Run(ctx, testCollection(), makeChunks(120))

	require.True(t, result.Cancelled)
	require.Equal(t, 0, result.ChunksIndexed)
	require.Empty(t, result.FailedBatches)
}

type batchTransition struct {
	index int
	state models.BatchState
}

func TestPipeline_BatchStateTransitions(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var seen []batchTransition
		embedder := &fakeEmbedder{}
		store := newFakeVectorStore()
		p := NewPipeline(embedder, store, Config{
			BatchSize:  1,
			MaxRetries: 5,
			Backoff:    noBackoff,
			OnBatchState: func(i int, s models.BatchState) {
				seen = append(seen, batchTransition{i, s})
			},
		})

		p.Run(context.Background(), testCollection(), makeChunks(2))

		require.Equal(t, []batchTransition{
			{0, models.BatchPending},
			{1, models.BatchPending},
			{0, models.BatchInFlight},
			{0, models.BatchSucceeded},
			{1, models.BatchInFlight},
			{1, models.BatchSucceeded},
		}, seen)
	})

	t.Run("retry then succeed", func(t *testing.T) {
		var seen []batchTransition
		embedder := &fakeEmbedder{}
		store := newFakeVectorStore()
		store.failUntil = 2
		p := NewPipeline(embedder, store, Config{
			BatchSize:  50,
			MaxRetries: 5,
			Backoff:    noBackoff,
			OnBatchState: func(i int, s models.BatchState) {
				seen = append(seen, batchTransition{i, s})
			},
		})

		p.Run(context.Background(), testCollection(), makeChunks(10))

		require.Equal(t, []batchTransition{
			{0, models.BatchPending},
			{0, models.BatchInFlight},
			{0, models.BatchRetrying},
			{0, models.BatchInFlight},
			{0, models.BatchRetrying},
			{0, models.BatchInFlight},
			{0, models.BatchSucceeded},
		}, seen)
	})

	t.Run("exhausted", func(t *testing.T) {
		var seen []batchTransition
		embedder := &fakeEmbedder{}
		store := newFakeVectorStore()
		store.failUntil = 100
		p := NewPipeline(embedder, store, Config{
			BatchSize:  50,
			MaxRetries: 3,
			Backoff:    noBackoff,
			OnBatchState: func(i int, s models.BatchState) {
				seen = append(seen, batchTransition{i, s})
			},
		})

		p.Run(context.Background(), testCollection(), makeChunks(10))

		require.Equal(t, []batchTransition{
			{0, models.BatchPending},
			{0, models.BatchInFlight},
			{0, models.BatchRetrying},
			{0, models.BatchInFlight},
			{0, models.BatchRetrying},
			{0, models.BatchInFlight},
			{0, models.BatchFailed},
		}, seen)
	})
}

func TestPipeline_EmptyChunkList(t *testing.T) {
	p := NewPipeline(&fakeEmbedder{}, newFakeVectorStore(), Config{})
	result := p.Run(context.Background(), testCollection(), nil)
	require.Zero(t, result.ChunksTotal)
	require.Zero(t, result.ChunksIndexed)
	require.Empty(t, result.FailedBatches)
}
