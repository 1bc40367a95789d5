package local

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	"corpusqa/internal/embedding"
)

// DefaultDimension matches the small sentence-transformer models commonly
// used for corpus snapshots.
const DefaultDimension = 384

// Embedder is a deterministic feature-hashing term-frequency embedder. It
// needs no network or model files, always produces the same unit vector for
// the same text, and is the provider used by tests and offline deployments.
//
// Vectors from this embedder are only comparable with each other; the model
// guard at snapshot load keeps them from being mixed with transformer
// embeddings.
type Embedder struct {
	dim int

	once         sync.Once
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates a hashing embedder with the given dimension (or
// DefaultDimension when dim <= 0).
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{dim: dim}
}

// Embed tokenizes, filters stopwords, hashes each remaining token into a
// fixed-dimension term-frequency vector and L2-normalizes it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(text)) < embedding.MinTextLength {
		return nil, embedding.ErrTextTooShort
	}
	e.init()

	vec := make([]float64, e.dim)
	for _, tok := range e.tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dim))
		// Second-order bit decides the sign, spreading collisions instead of
		// always accumulating them.
		if (sum>>31)&1 == 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}
	embedding.Normalize(vec)
	return vec, nil
}

// Dimension returns the fixed vector dimension.
func (e *Embedder) Dimension() int { return e.dim }

// ModelID identifies this embedder in snapshot metadata.
func (e *Embedder) ModelID() string { return "local-hash-tf-v1" }

func (e *Embedder) init() {
	e.once.Do(func() {
		e.tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
		e.stopwords = defaultStopwords()
	})
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// The corpus transcripts are Spanish, queries may be either language.
func defaultStopwords() map[string]struct{} {
	words := []string{
		// English
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "not",
		"can", "will", "just", "should", "now",
		// Spanish
		"el", "la", "los", "las", "un", "una", "unos", "unas", "y", "o",
		"pero", "si", "no", "de", "del", "al", "en", "por", "para", "con",
		"sin", "sobre", "entre", "hasta", "desde", "que", "como", "cuando",
		"donde", "quien", "es", "son", "era", "eran", "fue", "fueron", "ser",
		"estar", "esta", "este", "estos", "estas", "ese", "esa", "esos",
		"esas", "lo", "le", "les", "se", "su", "sus", "mi", "mis", "tu",
		"tus", "muy", "mas", "ya", "todo", "todos", "toda", "todas",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
