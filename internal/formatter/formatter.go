// Package formatter renders ranked evidence into the text block the
// downstream generation step consumes. The exact layout matters: citation
// lines and per-result scores are what lets the generator quote sources.
package formatter

import (
	"fmt"
	"regexp"
	"strings"

	"corpusqa/internal/domain"
)

// maxListItems caps the numbered-list rendering for enumerative queries.
const maxListItems = 5

var (
	listQueryRe = regexp.MustCompile(`nombr[ea]|list[oa]|menciona|cu[áa]les?|tipos? de|diferentes|ejemplos? de`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
)

// Formatter renders search results into an evidence block.
type Formatter struct {
	// IncludeMetadata adds chunk provenance annotations to each block.
	IncludeMetadata bool
}

// Format renders results for the given query. Enumerative queries with more
// than one result get a numbered list of first sentences; everything else
// gets full evidence blocks separated by a visible divider.
func (f *Formatter) Format(query string, results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	if IsListQuery(query) && len(results) > 1 {
		return f.formatList(results)
	}
	return f.formatBlocks(results)
}

// IsListQuery reports whether the query asks for an enumeration.
func IsListQuery(query string) bool {
	return listQueryRe.MatchString(strings.ToLower(query))
}

func (f *Formatter) formatBlocks(results []domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "### Evidencia %d (Score: %.2f)\n**Fuente:** %s\n\n**Contenido:**\n%s",
			i+1, r.Similarity, Citation(r.Metadata), r.Content)
		if f.IncludeMetadata {
			if info := metadataInfo(r.Metadata); info != "" {
				fmt.Fprintf(&b, "\n\n*Metadata: %s*", info)
			}
		}
		if r.QualityReason != "" {
			fmt.Fprintf(&b, "\n\n*Calidad: %s*", r.QualityReason)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func (f *Formatter) formatList(results []domain.SearchResult) string {
	n := len(results)
	if n > maxListItems {
		n = maxListItems
	}
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r := results[i]
		source := shortCitation(r.Metadata)
		items = append(items, fmt.Sprintf("%d. **%s** - Fuente: %s (Score: %.2f)",
			i+1, FirstSentence(r.Content), source, r.Similarity))
	}
	return "### Lista de Resultados Encontrados:\n\n" + strings.Join(items, "\n")
}

// Citation derives the source line from metadata, preferring the page
// number, then the chunk index, then the bare file name.
func Citation(m domain.PassageMetadata) string {
	switch {
	case m.PageNumber > 0:
		return fmt.Sprintf("[Fuente: %s, Página %d]", m.FileName, m.PageNumber)
	case m.ChunkIndex != nil:
		return fmt.Sprintf("[Fuente: %s, Chunk %d]", m.FileName, *m.ChunkIndex+1)
	default:
		return fmt.Sprintf("[Fuente: %s]", m.FileName)
	}
}

func shortCitation(m domain.PassageMetadata) string {
	if m.PageNumber > 0 {
		return fmt.Sprintf("[%s, Página %d]", m.FileName, m.PageNumber)
	}
	return fmt.Sprintf("[%s]", m.FileName)
}

// FirstSentence extracts the first complete sentence of content, restoring
// the terminal period when more text follows.
func FirstSentence(content string) string {
	parts := sentenceRe.Split(content, 2)
	first := strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		first += "."
	}
	return first
}

func metadataInfo(m domain.PassageMetadata) string {
	if m.ChunkStart == nil && m.ContentType == "" {
		return ""
	}
	var info []string
	if m.ContentType != "" {
		info = append(info, "Tipo: "+m.ContentType)
	}
	if m.ChunkSize > 0 {
		info = append(info, fmt.Sprintf("Tamaño: %d chars", m.ChunkSize))
	}
	return strings.Join(info, ", ")
}
