package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"github.com/anydocai/docpipe/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor extracts plain text from binary documents with docconv.
// PDF pages arrive separated by form feeds; other formats come back as a
// single page.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) ExtractPages(ctx context.Context, data []byte, contentType string) ([]string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages := splitPages(res.Body)
	if len(pages) == 0 {
		return nil, core.ErrNoExtractableText
	}
	return pages, nil
}

func splitPages(body string) []string {
	var pages []string
	for _, page := range strings.Split(body, "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}
