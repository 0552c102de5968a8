package ingestion_engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/models"
)

// Config tunes the batch ingestion pipeline.
//
// BatchSize:  chunks per vector-store write (bounds request size and the
//             blast radius of one failure).
// MaxRetries: attempts per batch before it is recorded as failed.
// Backoff:    delay schedule between attempts; nil means ExponentialBackoff.
type Config struct {
	BatchSize  int
	MaxRetries int
	Backoff    func(attempt int) time.Duration

	// OnBatchState observes every batch state transition
	// (pending, in_flight, retrying, succeeded, failed). Optional;
	// used for progress reporting.
	OnBatchState func(batchIndex int, state models.BatchState)
}

type batch struct {
	index    int
	chunks   []models.Chunk
	state    models.BatchState
	attempts int
}

// Pipeline drives an ordered chunk list through embedding and vector-store
// writes, batch by batch. Batches for one document run sequentially;
// concurrent writes to the same tenant collection cause write contention in
// the vector store. Run one Pipeline call per document; calls for different
// documents may run concurrently.
type Pipeline struct {
	embedder core.EmbeddingProvider
	store    core.VectorStore
	cfg      Config
}

func NewPipeline(embedder core.EmbeddingProvider, store core.VectorStore, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff
	}
	return &Pipeline{embedder: embedder, store: store, cfg: cfg}
}

// Run delivers every chunk to the resolved collection and reports partial
// success: a batch that exhausts its retries is recorded in FailedBatches
// and does not stop later batches, and nothing already written is rolled
// back. Chunks of successful batches get their EmbeddingID set in place.
//
// Cancellation is checked between batches, never mid-batch, so a batch is
// never left half-written; on cancellation the result carries what was
// indexed so far with Cancelled set.
func (p *Pipeline) Run(ctx context.Context, col models.TenantCollection, chunks []models.Chunk) models.IngestResult {
	result := models.IngestResult{ChunksTotal: len(chunks)}
	if len(chunks) == 0 {
		return result
	}
	if len(chunks) > 0 {
		result.DocumentID = chunks[0].DocumentID
		result.Strategy = chunks[0].Strategy
	}

	batches := partitionBatches(chunks, p.cfg.BatchSize)
	log.Printf("ingestion: %d chunks in %d batches for collection %s", len(chunks), len(batches), col.Name)
	for _, b := range batches {
		p.setState(b, models.BatchPending)
	}

	for _, b := range batches {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		policy := RetryPolicy{
			MaxAttempts: p.cfg.MaxRetries,
			Backoff:     p.cfg.Backoff,
			OnRetry: func(attempt int, err error) {
				p.setState(b, models.BatchRetrying)
				b.attempts = attempt
				log.Printf("ingestion: batch %d attempt %d failed: %v", b.index, attempt, err)
			},
		}

		err := policy.Do(ctx, func(ctx context.Context) error {
			p.setState(b, models.BatchInFlight)
			return p.flush(ctx, col.Name, b)
		})
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				break
			}
			p.setState(b, models.BatchFailed)
			result.FailedBatches = append(result.FailedBatches, b.index)
			log.Printf("ingestion: batch %d failed after %d attempts: %v", b.index, p.cfg.MaxRetries, err)
			continue
		}

		p.setState(b, models.BatchSucceeded)
		result.ChunksIndexed += len(b.chunks)
	}

	return result
}

func (p *Pipeline) setState(b *batch, state models.BatchState) {
	b.state = state
	if p.cfg.OnBatchState != nil {
		p.cfg.OnBatchState(b.index, state)
	}
}

// flush embeds one batch and writes it to the collection in a single
// vector-store call. Embedding IDs are attached only once the write has
// succeeded.
func (p *Pipeline) flush(ctx context.Context, collection string, b *batch) error {
	texts := make([]string, len(b.chunks))
	for i := range b.chunks {
		texts[i] = b.chunks[i].Content
	}

	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrEmbeddingFailed, err)
	}
	if len(vecs) != len(b.chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", core.ErrEmbeddingFailed, len(vecs), len(b.chunks))
	}

	records := make([]core.VectorRecord, len(b.chunks))
	for i := range b.chunks {
		records[i] = core.VectorRecord{
			ID:     uuid.NewString(),
			Vector: vecs[i],
			Chunk:  b.chunks[i],
		}
	}

	if err := p.store.BatchWrite(ctx, collection, records); err != nil {
		return fmt.Errorf("%w: %v", core.ErrVectorWriteFailed, err)
	}

	for i := range b.chunks {
		b.chunks[i].EmbeddingID = records[i].ID
	}
	return nil
}

// partitionBatches cuts the chunk list into ceil(n/size) consecutive,
// non-overlapping batches preserving chunk order.
func partitionBatches(chunks []models.Chunk, size int) []*batch {
	batches := make([]*batch, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, &batch{
			index:  len(batches),
			chunks: chunks[start:end],
			state:  models.BatchPending,
		})
	}
	return batches
}
