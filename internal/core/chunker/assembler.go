package chunker

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/core/segmenter"
	"github.com/anydocai/docpipe/internal/models"
)

// Assemble turns per-page spans into Chunk records. The chunk index is a
// single counter across the whole document, so indexes are contiguous from
// zero regardless of page boundaries. Empty pages are skipped; a document
// that yields no chunks at all fails with ErrNoExtractableText.
func Assemble(doc models.Document, strategy models.ChunkingStrategy, pages [][]segmenter.Span) ([]models.Chunk, error) {
	now := time.Now().UTC()

	var chunks []models.Chunk
	index := 0
	for pageIdx, spans := range pages {
		for _, span := range spans {
			if strings.TrimSpace(span.Text) == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				OwnerID:    doc.OwnerID,
				Content:    span.Text,
				PageNumber: pageIdx + 1,
				Index:      index,
				Heading:    span.Heading,
				Strategy:   strategy,
				CreatedAt:  now,
			})
			index++
		}
	}

	if len(chunks) == 0 {
		return nil, core.ErrNoExtractableText
	}
	return chunks, nil
}
