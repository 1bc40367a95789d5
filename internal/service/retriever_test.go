package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpusqa/internal/domain"
	"corpusqa/internal/quality"
	"corpusqa/internal/vectorstore"
)

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) ModelID() string { return "fake-model" }

type fakeStore struct {
	loadErr    error
	searchErr  error
	results    []domain.SearchResult
	lastK      int
	lastMinSim float64
}

func (f *fakeStore) Load(ctx context.Context) error { return f.loadErr }

func (f *fakeStore) Search(ctx context.Context, query []float64, k int, minSimilarity float64) ([]domain.SearchResult, error) {
	f.lastK = k
	f.lastMinSim = minSimilarity
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeStore) Diagnostics() domain.Diagnostics {
	return domain.Diagnostics{IsLoaded: f.loadErr == nil, EntryCount: len(f.results)}
}

func testGate() quality.Gate {
	return quality.Gate{MinTopScore: 0.4, MinResults: 2}
}

func evidence(content string, sim float64) domain.SearchResult {
	return domain.SearchResult{
		Content:    content,
		Similarity: sim,
		Metadata:   domain.PassageMetadata{FileName: "corpus.txt"},
	}
}

func TestRetrieveAnswerable(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		evidence("Primer testimonio del encuentro.", 0.72),
		evidence("Segundo testimonio del encuentro.", 0.55),
	}}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "qué pasó en el valle", Options{MatchCount: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusAnswerable, res.Status)
	assert.Equal(t, 0.72, res.Context.TopScore)
	assert.Equal(t, 2, res.Context.ResultsCount)
	assert.Contains(t, res.Context.Context, "### Evidencia 1")
	assert.Empty(t, res.Reason)
}

func TestRetrieveInsufficientEvidence(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		evidence("Testimonio de baja relevancia.", 0.15),
		evidence("Otro testimonio de baja relevancia.", 0.12),
	}}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "qué pasó", Options{MatchCount: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientEvidence, res.Status)
	assert.Equal(t, 0.15, res.Context.TopScore)
	assert.Equal(t, 2, res.Context.ResultsCount)
	assert.NotEmpty(t, res.Reason)
	// The evidence is still returned so the caller can show what was found.
	assert.NotEmpty(t, res.Context.Context)
}

func TestRetrieveNoResults(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "consulta sin coincidencias", Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusNoResults, res.Status)
	assert.NotEmpty(t, res.Reason)
}

func TestRetrieveCorpusUnavailable(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("read snapshot: no such file")}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "cualquier consulta", Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusCorpusUnavailable, res.Status)
	assert.Contains(t, res.Reason, "no such file")
}

func TestRetrieveSearchNotReadyMapsToUnavailable(t *testing.T) {
	store := &fakeStore{searchErr: vectorstore.ErrNotReady}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "cualquier consulta", Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusCorpusUnavailable, res.Status)
}

func TestRetrieveEmbeddingFailureIsNoResults(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{evidence("algo", 0.9)}}
	r := NewRetriever(&fakeEmbedder{err: errors.New("model offline")}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "consulta", Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusNoResults, res.Status)
	assert.Contains(t, res.Reason, "model offline")
	assert.Empty(t, res.Results)
}

func TestRetrieveQualityFilterWidensSearch(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		evidence("El testigo relató el avistamiento de una nave con luces sobre la ciudad durante la noche, donde observó una entidad cerca del objeto luminoso en la zona.", 0.62),
		evidence("El segundo testigo relató otro avistamiento de la nave con luces sobre la misma zona, una noche después, y observó la entidad junto al objeto.", 0.58),
	}}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "qué pasó", Options{MatchCount: 4, RequireHighQuality: true})
	require.NoError(t, err)
	assert.Equal(t, 8, store.lastK, "quality filtering should widen the candidate search")
	assert.Equal(t, StatusAnswerable, res.Status)
	for _, result := range res.Results {
		assert.True(t, result.IsUseful)
	}
}

func TestRetrieveQualityFilterCanEmptyResults(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		evidence("se sabe que 80% de los reportes corresponden a aves y otras cosas", 0.55),
	}}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	res, err := r.Retrieve(context.Background(), "qué pasó", Options{RequireHighQuality: true})
	require.NoError(t, err)
	assert.Equal(t, StatusNoResults, res.Status)
}

func TestRetrieveCanceledContext(t *testing.T) {
	store := &fakeStore{loadErr: context.Canceled}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	_, err := r.Retrieve(context.Background(), "consulta", Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetrieveDefaultMatchCount(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	_, err := r.Retrieve(context.Background(), "consulta", Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, store.lastK)
}

func TestRetrieveForwardsMinSimilarity(t *testing.T) {
	tests := []struct {
		name string
		min  float64
	}{
		{"explicit zero threshold", 0},
		{"negative disables threshold", -1},
		{"positive threshold", 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

			_, err := r.Retrieve(context.Background(), "consulta", Options{MinSimilarity: tt.min})
			require.NoError(t, err)
			assert.Equal(t, tt.min, store.lastMinSim)
		})
	}
}

func TestDiagnosticsPassThrough(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{evidence("algo", 0.5)}}
	r := NewRetriever(&fakeEmbedder{vec: []float64{1}}, store, quality.Lenient(), testGate(), nil)

	d := r.Diagnostics(context.Background())
	assert.True(t, d.IsLoaded)
	assert.Equal(t, 1, d.EntryCount)
}
