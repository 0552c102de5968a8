package services

import (
	"context"
	"fmt"
	"log"

	"github.com/anydocai/docpipe/internal/core/chunker"
	"github.com/anydocai/docpipe/internal/core/ingestion_engine"
	"github.com/anydocai/docpipe/internal/core/tenant"
	"github.com/anydocai/docpipe/internal/models"
)

var _ ingestion_engine.DocumentProcessor = (*IngestService)(nil)

// IngestService is the single entry point collaborators call once a file's
// text has been extracted: it segments the document, resolves the owner's
// collection and drives the chunks through the batch pipeline.
type IngestService struct {
	selector *chunker.Selector
	resolver *tenant.Resolver
	pipeline *ingestion_engine.Pipeline
}

func NewIngestService(selector *chunker.Selector, resolver *tenant.Resolver, pipeline *ingestion_engine.Pipeline) *IngestService {
	return &IngestService{
		selector: selector,
		resolver: resolver,
		pipeline: pipeline,
	}
}

// ProcessDocument chunks the document and indexes every chunk into the
// owner's collection. The returned result reports partial success; an error
// means nothing was indexed at all.
func (s *IngestService) ProcessDocument(ctx context.Context, doc models.Document) (models.IngestResult, error) {
	strategy, pages := s.selector.Segment(doc)

	chunks, err := chunker.Assemble(doc, strategy, pages)
	if err != nil {
		return models.IngestResult{DocumentID: doc.ID, Strategy: strategy}, err
	}
	log.Printf("ingest: document %s segmented into %d chunks (strategy %s)", doc.ID, len(chunks), strategy)

	col, err := s.resolver.EnsureSchema(ctx, doc.OwnerID)
	if err != nil {
		return models.IngestResult{DocumentID: doc.ID, Strategy: strategy, ChunksTotal: len(chunks)},
			fmt.Errorf("resolve collection for owner %s: %w", doc.OwnerID, err)
	}

	result := s.pipeline.Run(ctx, col, chunks)
	result.DocumentID = doc.ID
	result.Strategy = strategy
	return result, nil
}
