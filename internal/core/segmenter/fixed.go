package segmenter

import "strings"

// FixedSize splits text into windows of at most chunkSize characters with
// approximately overlap characters shared between neighbours. The right
// edge of each window is pulled back to the nearest preceding newline, or
// failing that the nearest preceding space, so chunks avoid splitting
// mid-line or mid-word. Every character of the input lands in at least one
// span. Empty input produces no spans.
func FixedSize(text string, chunkSize, overlap int) []Span {
	if text == "" || chunkSize <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	n := len(text)
	spans := make([]Span, 0, n/(chunkSize-overlap)+1)

	start := 0
	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}

		// Look for a friendlier break point inside the window: newline
		// first, then space. Only when the window doesn't already reach
		// the end of the text.
		if end < n {
			if p := strings.LastIndexByte(text[start:end], '\n'); p > 0 {
				end = start + p + 1
			} else if p := strings.LastIndexByte(text[start:end], ' '); p > 0 {
				end = start + p + 1
			}
		}

		spans = append(spans, Span{Text: text[start:end]})

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			// Break-point adjustment ate the whole step; move past the
			// window instead of stalling.
			next = end
		}
		start = next
	}

	return spans
}
