package segmenter

import (
	"regexp"
	"sort"
	"strings"
)

type heading struct {
	start, end int
	title      string
}

// HasHeadings reports whether any configured heading pattern matches.
// The strategy selector uses this to decide between topic-based and
// fixed-size segmentation.
func HasHeadings(text string, cfg TopicConfig) bool {
	return len(detectHeadings(text, cfg)) > 0
}

// TopicBased splits text along detected section headings. Sections that fit
// within MaxChunkSize become a single span tagged with their heading; larger
// sections are split into paragraphs (and over-long paragraphs into
// sentence groups) with the heading text prepended to the first piece only.
// Without any heading match the whole text is paragraph-split untagged.
//
// A post-pass folds spans shorter than MinChunkSize into their predecessor
// when the merged span still fits; the first span of a section is never
// merged away.
func TopicBased(text string, cfg TopicConfig) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	heads := detectHeadings(text, cfg)
	if len(heads) == 0 {
		spans, first := spansFromParagraphs(text, "", cfg.MaxChunkSize)
		return mergeSmall(spans, first, cfg)
	}

	var spans []Span
	var first []bool // first span of its section

	// Text ahead of the first heading still gets indexed, untagged.
	if pre := strings.TrimSpace(text[:heads[0].start]); pre != "" {
		ps, fs := spansFromParagraphs(pre, "", cfg.MaxChunkSize)
		spans = append(spans, ps...)
		first = append(first, fs...)
	}

	for i, h := range heads {
		secEnd := len(text)
		if i+1 < len(heads) {
			secEnd = heads[i+1].start
		}

		section := strings.TrimSpace(text[h.start:secEnd])
		if section == "" {
			continue
		}

		if len(section) <= cfg.MaxChunkSize {
			spans = append(spans, Span{Text: section, Heading: h.title})
			first = append(first, true)
			continue
		}

		body := strings.TrimSpace(text[h.end:secEnd])
		parts, _ := spansFromParagraphs(body, h.title, cfg.MaxChunkSize)
		for j := range parts {
			if j == 0 {
				// Heading text leads the first paragraph only.
				parts[j].Text = h.title + "\n" + parts[j].Text
			}
			spans = append(spans, parts[j])
			first = append(first, j == 0)
		}
	}

	return mergeSmall(spans, first, cfg)
}

// detectHeadings collects every pattern match as (start, end, title), sorted
// by position, with overlapping matches deduplicated by earliest start
// offset. Titles at or above HeadingMaxLen are discarded as false positives.
func detectHeadings(text string, cfg TopicConfig) []heading {
	var ms []heading
	for _, re := range cfg.Patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			title := headingTitle(text[loc[0]:loc[1]])
			if title == "" {
				continue
			}
			if cfg.HeadingMaxLen > 0 && len(title) >= cfg.HeadingMaxLen {
				continue
			}
			ms = append(ms, heading{start: loc[0], end: loc[1], title: title})
		}
	}

	sort.Slice(ms, func(i, j int) bool {
		if ms[i].start != ms[j].start {
			return ms[i].start < ms[j].start
		}
		return ms[i].end > ms[j].end
	})

	out := ms[:0]
	lastEnd := -1
	for _, m := range ms {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.end
	}
	return out
}

// headingTitle reduces a raw pattern match to its title line: the first
// line, stripped of markdown hashes and surrounding whitespace. Underlined
// headings match two lines; the underline is dropped with the rest.
func headingTitle(raw string) string {
	line := raw
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	return strings.TrimSpace(line)
}

var (
	blankLine   = regexp.MustCompile(`\n[ \t]*\n+`)
	sentenceEnd = regexp.MustCompile(`[.!?]\s+`)
)

// spansFromParagraphs splits on blank lines and sentence-packs any paragraph
// longer than maxSize. The returned bool slice marks the first span so the
// merge pass can leave it alone.
func spansFromParagraphs(text, heading string, maxSize int) ([]Span, []bool) {
	var spans []Span
	for _, para := range blankLine.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxSize {
			spans = append(spans, Span{Text: para, Heading: heading})
			continue
		}
		for _, piece := range packSentences(splitSentences(para), maxSize) {
			spans = append(spans, Span{Text: piece, Heading: heading})
		}
	}

	first := make([]bool, len(spans))
	if len(first) > 0 {
		first[0] = true
	}
	return spans, first
}

// splitSentences cuts a paragraph at `.`, `!` or `?` followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(p string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(p, -1) {
		out = append(out, strings.TrimSpace(p[last:loc[0]+1]))
		last = loc[1]
	}
	if rest := strings.TrimSpace(p[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// packSentences accumulates sentences into buffers of at most maxSize.
// A single sentence longer than maxSize stands alone; it cannot be split
// further.
func packSentences(sents []string, maxSize int) []string {
	var out []string
	var buf strings.Builder
	for _, s := range sents {
		if buf.Len() > 0 && buf.Len()+1+len(s) > maxSize {
			out = append(out, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(s)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

func mergeSmall(spans []Span, first []bool, cfg TopicConfig) []Span {
	if cfg.MinChunkSize <= 0 || len(spans) < 2 {
		return spans
	}
	out := make([]Span, 0, len(spans))
	out = append(out, spans[0])
	for i := 1; i < len(spans); i++ {
		cur := spans[i]
		prev := &out[len(out)-1]
		if !first[i] && len(cur.Text) < cfg.MinChunkSize &&
			len(prev.Text)+1+len(cur.Text) <= cfg.MaxChunkSize {
			prev.Text = prev.Text + "\n" + cur.Text
			continue
		}
		out = append(out, cur)
	}
	return out
}
