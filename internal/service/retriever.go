package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"corpusqa/internal/domain"
	"corpusqa/internal/formatter"
	"corpusqa/internal/quality"
	"corpusqa/internal/vectorstore"
)

// Status classifies the terminal outcome of a retrieval. Only
// StatusAnswerable permits the caller to generate an answer; the other three
// are distinct so the caller can explain each one differently.
type Status int

const (
	// StatusAnswerable: evidence passed the sufficiency gate.
	StatusAnswerable Status = iota
	// StatusInsufficientEvidence: results exist but the gate failed.
	StatusInsufficientEvidence
	// StatusNoResults: nothing matched, or the query could not be embedded.
	StatusNoResults
	// StatusCorpusUnavailable: the snapshot is missing or invalid; every
	// query fails until an operator fixes it.
	StatusCorpusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAnswerable:
		return "answerable"
	case StatusInsufficientEvidence:
		return "insufficient_evidence"
	case StatusNoResults:
		return "no_results"
	case StatusCorpusUnavailable:
		return "corpus_unavailable"
	default:
		return "unknown"
	}
}

// Embedder is the service-side view of a query embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	ModelID() string
}

// Store is the service-side view of the corpus store.
type Store interface {
	Load(ctx context.Context) error
	Search(ctx context.Context, query []float64, k int, minSimilarity float64) ([]domain.SearchResult, error)
	Diagnostics() domain.Diagnostics
}

// Options are the per-query retrieval parameters. MinSimilarity is applied
// as given: zero keeps every non-negative match and a negative value
// disables the threshold entirely. MatchCount <= 0 selects the default.
type Options struct {
	MatchCount         int
	MinSimilarity      float64
	IncludeMetadata    bool
	RequireHighQuality bool
}

// Result is the outcome of one retrieval. Context carries the formatted
// evidence block plus the top adjusted score and result count, the entire
// contract the downstream generation step needs.
type Result struct {
	Status  Status
	Context domain.RAGContext
	Results []domain.SearchResult
	Reason  string
}

// Retriever runs the query path: embed, search, quality-filter, format,
// gate. It holds no per-query state and is safe for concurrent use.
type Retriever struct {
	embedder Embedder
	store    Store
	rules    *quality.RuleSet
	gate     quality.Gate
	log      *zap.Logger

	defaultMatchCount int
}

// NewRetriever wires the pipeline. rules selects the quality preset; gate
// carries the deployment's confidence threshold.
func NewRetriever(embedder Embedder, store Store, rules *quality.RuleSet, gate quality.Gate, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{
		embedder:          embedder,
		store:             store,
		rules:             rules,
		gate:              gate,
		log:               log,
		defaultMatchCount: 6,
	}
}

// Retrieve answers the question "is there enough corpus evidence for this
// query, and what is it". Every malformed-input path returns a well-defined
// Result; the only errors returned are context cancellation.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*Result, error) {
	if opts.MatchCount <= 0 {
		opts.MatchCount = r.defaultMatchCount
	}

	if err := r.store.Load(ctx); err != nil {
		if isCtxErr(err) {
			return nil, err
		}
		r.log.Error("corpus unavailable", zap.Error(err))
		return &Result{Status: StatusCorpusUnavailable, Reason: err.Error()}, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if isCtxErr(err) {
			return nil, err
		}
		// An unembeddable query recovers as zero results, never a crash.
		r.log.Warn("query embedding failed", zap.Error(err))
		return &Result{
			Status: StatusNoResults,
			Reason: fmt.Sprintf("no se pudo procesar la consulta: %v", err),
		}, nil
	}

	// Search wider than requested when quality filtering, to compensate for
	// the results the filter drops.
	searchCount := opts.MatchCount
	if opts.RequireHighQuality {
		searchCount = opts.MatchCount * 2
	}
	results, err := r.store.Search(ctx, queryVec, searchCount, opts.MinSimilarity)
	if err != nil {
		if isCtxErr(err) {
			return nil, err
		}
		if errors.Is(err, vectorstore.ErrNotReady) {
			return &Result{Status: StatusCorpusUnavailable, Reason: err.Error()}, nil
		}
		r.log.Error("corpus search failed", zap.Error(err))
		return &Result{Status: StatusNoResults, Reason: err.Error()}, nil
	}

	rawCount := len(results)
	if opts.RequireHighQuality {
		results = r.rules.Apply(results, opts.MatchCount)
		r.log.Debug("quality filter applied",
			zap.Int("raw", rawCount),
			zap.Int("kept", len(results)),
			zap.String("preset", r.rules.Name),
		)
	}

	if len(results) == 0 {
		return &Result{
			Status: StatusNoResults,
			Reason: "sin resultados que superen los filtros de calidad",
		}, nil
	}

	f := formatter.Formatter{IncludeMetadata: opts.IncludeMetadata}
	contextText := f.Format(query, results)
	topScore := results[0].Similarity

	decision := r.gate.Decide(topScore, len(results), contextText != "")
	res := &Result{
		Context: domain.RAGContext{
			Context:      contextText,
			TopScore:     topScore,
			ResultsCount: len(results),
		},
		Results: results,
	}
	if !decision.Answerable {
		res.Status = StatusInsufficientEvidence
		res.Reason = decision.Reason
		r.log.Info("insufficient evidence",
			zap.Float64("top_score", topScore),
			zap.Int("results", len(results)),
			zap.String("reason", decision.Reason),
		)
		return res, nil
	}
	res.Status = StatusAnswerable
	r.log.Info("retrieval complete",
		zap.Float64("top_score", topScore),
		zap.Int("results", len(results)),
	)
	return res, nil
}

// Diagnostics reports corpus health for operational checks. It triggers a
// load attempt so a fresh process reports real numbers.
func (r *Retriever) Diagnostics(ctx context.Context) domain.Diagnostics {
	if err := r.store.Load(ctx); err != nil {
		r.log.Warn("diagnostics load failed", zap.Error(err))
	}
	return r.store.Diagnostics()
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
