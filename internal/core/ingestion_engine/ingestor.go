package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"golang.org/x/sync/errgroup"

	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/models"
)

// DocumentProcessor turns an extracted document into indexed chunks.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc models.Document) (models.IngestResult, error)
}

// Job identifies one object-store file queued for ingestion.
type Job struct {
	DocumentID string
	OwnerID    string
	Bucket     string
	Key        string
	Filename   string
}

// DocumentIngestor pulls queued jobs, fetches the file from object storage,
// extracts its text and hands the document to the processor. Jobs are
// buffered; Enqueue blocks once the buffer is full.
type DocumentIngestor struct {
	obj       core.ObjectClient
	extractor core.DocumentExtractor
	processor DocumentProcessor
	jobs      chan Job
}

func NewDocumentIngestor(obj core.ObjectClient, extractor core.DocumentExtractor, processor DocumentProcessor) *DocumentIngestor {
	return &DocumentIngestor{
		obj:       obj,
		extractor: extractor,
		processor: processor,
		jobs:      make(chan Job, 64),
	}
}

func (d *DocumentIngestor) Enqueue(job Job) {
	d.jobs <- job
}

// Start runs numWorkers goroutines draining the job queue until ctx is
// cancelled. It blocks until every worker has exited. A failed job is
// logged, never fatal to the worker.
func (d *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		id := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-d.jobs:
					if err := d.processOne(ctx, job); err != nil {
						log.Printf("ingestor worker %d: document %s: %v", id, job.DocumentID, err)
					}
				}
			}
		})
	}
	_ = g.Wait()
}

func (d *DocumentIngestor) processOne(ctx context.Context, job Job) error {
	data, err := d.obj.GetFile(ctx, job.Bucket, job.Key)
	if err != nil {
		return fmt.Errorf("fetch %s/%s: %w", job.Bucket, job.Key, err)
	}

	pages, err := d.extractor.ExtractPages(ctx, data, contentTypeFor(job.Filename))
	if err != nil {
		return fmt.Errorf("extract %s: %w", job.Filename, err)
	}

	doc := models.Document{
		ID:      job.DocumentID,
		OwnerID: job.OwnerID,
		Kind:    models.KindFromFilename(job.Filename),
		Pages:   pages,
	}

	result, err := d.processor.ProcessDocument(ctx, doc)
	if err != nil {
		if errors.Is(err, core.ErrNoExtractableText) {
			log.Printf("ingestor: document %s has no extractable text, skipping", job.DocumentID)
			return nil
		}
		return fmt.Errorf("process %s: %w", job.DocumentID, err)
	}

	log.Printf("ingestor: document %s indexed %d/%d chunks (strategy %s)",
		result.DocumentID, result.ChunksIndexed, result.ChunksTotal, result.Strategy)
	return nil
}

// contentTypeFor resolves the mime type docconv.Convert expects. Plain-text
// extensions are mapped here because docconv's own lookup answers
// octet-stream for them, which Convert rejects.
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return "text/plain"
	}
	return docconv.MimeTypeByExtension(filename)
}
