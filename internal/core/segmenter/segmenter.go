// Package segmenter holds the pure text-splitting algorithms: fixed-size
// windows with overlap, and topic-based splitting driven by detected
// section headings. No I/O; same input and parameters always produce the
// same spans.
package segmenter

import (
	"fmt"
	"regexp"
)

// Span is one segment of page text plus the nearest detected section title.
type Span struct {
	Text    string
	Heading string
}

// TopicConfig tunes topic-based segmentation.
//
// HeadingMaxLen rejects pattern matches whose title line is too long to
// plausibly be a heading; repeated boilerplate lines in PDFs trip the
// patterns otherwise.
type TopicConfig struct {
	MaxChunkSize  int
	MinChunkSize  int
	HeadingMaxLen int
	Patterns      []*regexp.Regexp
}

// CompilePatterns compiles the configured heading-detection expressions.
func CompilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("heading pattern %q: %w", e, err)
		}
		out = append(out, re)
	}
	return out, nil
}
