package chunker

import (
	"regexp"
	"strings"

	"corpusqa/internal/domain"
)

// SmartChunker splits cleaned text into overlapping character-window chunks,
// preferring sentence boundaries over hard cuts.
type SmartChunker struct {
	maxSize  int
	overlap  int
	minChunk int
}

// NewSmartChunker creates a chunker with the given window parameters. Invalid
// values fall back to defaults; overlap is clamped below maxSize so every
// iteration makes progress.
func NewSmartChunker(maxSize, overlap, minChunk int) *SmartChunker {
	if maxSize <= 0 {
		maxSize = 800
	}
	if overlap < 0 {
		overlap = 200
	}
	if overlap >= maxSize {
		overlap = maxSize - 1
	}
	if minChunk < 0 {
		minChunk = 100
	}
	return &SmartChunker{maxSize: maxSize, overlap: overlap, minChunk: minChunk}
}

// Chunk splits text into spans of at most maxSize characters. A span ends at
// the last sentence terminator ('.', '!', '?' or a blank line) inside the
// window, but only when that terminator lies past the window midpoint;
// otherwise the span is cut at the hard boundary. Spans shorter than minChunk
// are dropped rather than padded.
func (c *SmartChunker) Chunk(text string) []domain.Span {
	var spans []domain.Span
	start := 0
	for start < len(text) {
		end := start + c.maxSize
		if end > len(text) {
			end = len(text)
		} else {
			if cut := lastSentenceEnd(text, end); cut > start+c.maxSize/2 {
				end = cut + 1
			}
		}

		content := strings.TrimSpace(text[start:end])
		if len(content) >= c.minChunk {
			spans = append(spans, domain.Span{Content: content, Start: start, End: end})
		}

		// Next window: step back by the overlap, but never behind the point
		// already consumed; guarantees strictly increasing start.
		next := start + c.maxSize - c.overlap
		if next < end {
			next = end
		}
		start = next
	}
	return spans
}

// lastSentenceEnd returns the index of the last sentence terminator at or
// before limit, or -1. A paragraph break counts as a terminator.
func lastSentenceEnd(text string, limit int) int {
	if limit < len(text) {
		limit++
	}
	best := -1
	for _, sep := range []string{".", "!", "?", "\n\n"} {
		if idx := strings.LastIndex(text[:limit], sep); idx > best {
			best = idx
		}
	}
	return best
}

var (
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	spacesRe    = regexp.MustCompile(`[ \t]+`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
	nonASCIIRe  = regexp.MustCompile(`[^\x00-\x7F]`)
	spacedNLRe  = regexp.MustCompile(` ?\n ?`)
)

// CleanText normalizes extracted document text before chunking: line endings
// unified, horizontal whitespace collapsed, runs of blank lines reduced to a
// single paragraph break, problematic non-ASCII bytes removed.
func CleanText(text string) string {
	text = lineEndings.Replace(text)
	text = nonASCIIRe.ReplaceAllString(text, "")
	text = spacesRe.ReplaceAllString(text, " ")
	text = spacedNLRe.ReplaceAllString(text, "\n")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
