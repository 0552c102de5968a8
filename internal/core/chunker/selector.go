// Package chunker decides how a document gets segmented and assembles the
// resulting spans into addressable chunk records.
package chunker

import (
	"strings"

	"github.com/anydocai/docpipe/internal/core/segmenter"
	"github.com/anydocai/docpipe/internal/models"
)

// Quality grades a topic-based segmentation pass.
type Quality int

const (
	QualityOK Quality = iota
	QualityPoor
)

// TopicOutcome is the tagged result of one topic-based pass over a
// document's pages, so the hybrid fallback decision stays testable apart
// from the segmentation functions themselves.
type TopicOutcome struct {
	Pages   [][]segmenter.Span
	Quality Quality
}

// Config tunes strategy selection.
//
// The ratio thresholds decide when a topic-based result is degraded enough
// to discard: heading detection misfires on some PDFs (repeated boilerplate
// lines read as headings) and the uniform strategy is the safer output.
// The 0.30/0.50 defaults come straight from production tuning and are not
// known to be optimal.
type Config struct {
	ChunkSize          int
	ChunkOverlap       int
	Topic              segmenter.TopicConfig
	MaxOversizedRatio  float64
	MaxUndersizedRatio float64
}

// Selector chooses between fixed-size and topic-based segmentation per
// document kind and content shape.
type Selector struct {
	cfg Config
}

func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

var topicFriendly = map[models.DocumentKind]bool{
	models.KindPDF:  true,
	models.KindWord: true,
	models.KindText: true,
}

var fixedOnly = map[models.DocumentKind]bool{
	models.KindSpreadsheet: true,
	models.KindSlides:      true,
}

// Segment picks a strategy for the document and returns per-page spans.
//
// Topic-friendly kinds with at least one heading match get topic-based
// segmentation outright. Spreadsheets and slides are always fixed-size.
// Everything else runs the two-pass hybrid: topic-based first, discarded
// for fixed-size when the outcome grades poor.
func (s *Selector) Segment(doc models.Document) (models.ChunkingStrategy, [][]segmenter.Span) {
	full := strings.Join(doc.Pages, "\n\n")

	switch {
	case topicFriendly[doc.Kind] && segmenter.HasHeadings(full, s.cfg.Topic):
		return models.StrategyTopicBased, s.RunTopic(doc.Pages).Pages
	case fixedOnly[doc.Kind]:
		return models.StrategyFixedSize, s.runFixed(doc.Pages)
	default:
		out := s.RunTopic(doc.Pages)
		if out.Quality == QualityPoor {
			return models.StrategyFixedSize, s.runFixed(doc.Pages)
		}
		return models.StrategyTopicBased, out.Pages
	}
}

// RunTopic segments every page topic-based and grades the combined result:
// poor when more than MaxOversizedRatio of spans exceed MaxChunkSize, or
// more than MaxUndersizedRatio fall below MinChunkSize.
func (s *Selector) RunTopic(pages []string) TopicOutcome {
	out := make([][]segmenter.Span, len(pages))

	var total, oversized, undersized int
	for i, page := range pages {
		spans := segmenter.TopicBased(page, s.cfg.Topic)
		out[i] = spans
		for _, sp := range spans {
			total++
			if len(sp.Text) > s.cfg.Topic.MaxChunkSize {
				oversized++
			}
			if len(sp.Text) < s.cfg.Topic.MinChunkSize {
				undersized++
			}
		}
	}

	quality := QualityOK
	if total > 0 &&
		(float64(oversized) > float64(total)*s.cfg.MaxOversizedRatio ||
			float64(undersized) > float64(total)*s.cfg.MaxUndersizedRatio) {
		quality = QualityPoor
	}
	return TopicOutcome{Pages: out, Quality: quality}
}

func (s *Selector) runFixed(pages []string) [][]segmenter.Span {
	out := make([][]segmenter.Span, len(pages))
	for i, page := range pages {
		out[i] = segmenter.FixedSize(page, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	}
	return out
}
