package vectorstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"corpusqa/internal/domain"
)

// Snapshot loading failure modes. All of them leave the store not ready;
// queries surface them as a corpus-unavailable status rather than a crash.
var (
	ErrNotReady        = errors.New("corpus store not loaded")
	ErrSnapshotEmpty   = errors.New("snapshot contains no entries")
	ErrSnapshotInvalid = errors.New("snapshot structure invalid")
	ErrModelMismatch   = errors.New("snapshot embedding model does not match configured model")
)

// cancelCheckInterval is how many entries the scan processes between
// context checks.
const cancelCheckInterval = 256

// Store holds the embedded corpus in memory and serves linear-scan
// similarity search. The entry set is immutable between loads; a reload
// swaps the whole set atomically.
type Store struct {
	path    string
	modelID string
	log     *zap.Logger

	mu      sync.RWMutex
	loaded  bool
	entries []domain.PassageEntry
	meta    *domain.SnapshotMetadata
}

// New creates a store for the snapshot file at path. modelID is the embedding
// model the process queries with; a non-empty value is checked against the
// snapshot's recorded model at load time, because mixing models silently
// breaks similarity scores. Pass the zap.NewNop() logger in tests.
func New(path, modelID string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, modelID: modelID, log: log}
}

// Load reads the snapshot into memory. It is idempotent: once loaded, further
// calls are no-ops. Concurrent first callers serialize on the store lock so
// the file is read exactly once. A failed load leaves the store not ready and
// is retryable.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded && len(s.entries) > 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.readSnapshot()
	if err != nil {
		s.entries = nil
		s.loaded = false
		return err
	}
	s.entries = snap.Entries
	s.meta = snap.Metadata
	s.loaded = true
	s.log.Info("corpus snapshot loaded",
		zap.Int("entries", len(snap.Entries)),
		zap.String("model", s.snapshotModel()),
		zap.Int("dimension", s.snapshotDimension()),
	)
	return nil
}

// Reload re-reads the snapshot and swaps the entry set atomically. Queries
// running against the old set finish against the old set; a parse or
// validation failure keeps the current set serving.
func (s *Store) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.readSnapshot()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries = snap.Entries
	s.meta = snap.Metadata
	s.loaded = true
	s.mu.Unlock()
	s.log.Info("corpus snapshot reloaded", zap.Int("entries", len(snap.Entries)))
	return nil
}

// IsReady reports whether a non-empty snapshot is being served.
func (s *Store) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded && len(s.entries) > 0
}

// Metadata returns the snapshot provenance block, or nil for legacy
// flat-array snapshots.
func (s *Store) Metadata() *domain.SnapshotMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Search scans every corpus entry against the query vector, keeps entries
// with similarity >= minSimilarity, sorts descending (ties keep insertion
// order) and returns at most k results. Entries whose vector dimension
// disagrees with the query score 0 and drop out at the threshold.
func (s *Store) Search(ctx context.Context, query []float64, k int, minSimilarity float64) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded || len(s.entries) == 0 {
		return nil, ErrNotReady
	}
	if k <= 0 {
		k = 5
	}

	results := make([]domain.SearchResult, 0, k)
	for i, entry := range s.entries {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sim := CosineSimilarity(query, entry.Embedding)
		if sim < minSimilarity {
			continue
		}
		results = append(results, domain.SearchResult{
			Content:    entry.Content,
			Similarity: sim,
			Metadata:   entry.Metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Diagnostics reports store health for operational checks.
func (s *Store) Diagnostics() domain.Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := domain.Diagnostics{
		IsLoaded:   s.loaded && len(s.entries) > 0,
		EntryCount: len(s.entries),
		ModelID:    s.snapshotModel(),
		Dimension:  s.snapshotDimension(),
	}
	if len(s.entries) > 0 {
		sample := s.entries[0].Content
		if len(sample) > 100 {
			sample = sample[:100] + "..."
		}
		d.SampleContent = sample
	}
	return d
}

// readSnapshot reads, decompresses, decodes and validates the snapshot file.
func (s *Store) readSnapshot() (*domain.Snapshot, error) {
	data, err := readSnapshotFile(s.path)
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if err := validateSnapshot(snap, s.modelID); err != nil {
		return nil, err
	}
	return snap, nil
}

// readSnapshotFile opens path, or its compressed/uncompressed sibling when
// path is absent, and returns the decompressed bytes. Gzip content is
// detected by the magic bytes, not the extension.
func readSnapshotFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		alt := siblingPath(path)
		if alt == "" {
			return nil, fmt.Errorf("read snapshot %s: %w", path, err)
		}
		data, err = os.ReadFile(alt)
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", path, err)
		}
	}
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip snapshot: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		return out, nil
	}
	return data, nil
}

func siblingPath(path string) string {
	if strings.HasSuffix(path, ".gz") {
		return strings.TrimSuffix(path, ".gz")
	}
	return path + ".gz"
}

// decodeSnapshot accepts both the enveloped {metadata, embeddings} form and
// the legacy flat array of entries.
func decodeSnapshot(data []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err == nil && snap.Entries != nil {
		return &snap, nil
	}
	var legacy []domain.PassageEntry
	if err := json.Unmarshal(data, &legacy); err == nil {
		return &domain.Snapshot{Entries: legacy}, nil
	}
	return nil, ErrSnapshotInvalid
}

func validateSnapshot(snap *domain.Snapshot, modelID string) error {
	if len(snap.Entries) == 0 {
		return ErrSnapshotEmpty
	}
	first := snap.Entries[0]
	if first.Content == "" || len(first.Embedding) == 0 || first.Metadata.FileName == "" {
		return fmt.Errorf("%w: first entry missing content, embedding or fileName", ErrSnapshotInvalid)
	}
	if snap.Metadata != nil && snap.Metadata.Model != "" && modelID != "" && snap.Metadata.Model != modelID {
		return fmt.Errorf("%w: snapshot %q, configured %q", ErrModelMismatch, snap.Metadata.Model, modelID)
	}
	return nil
}

func (s *Store) snapshotModel() string {
	if s.meta != nil {
		return s.meta.Model
	}
	return ""
}

func (s *Store) snapshotDimension() int {
	if s.meta != nil && s.meta.Dimensions > 0 {
		return s.meta.Dimensions
	}
	if len(s.entries) > 0 {
		return len(s.entries[0].Embedding)
	}
	return 0
}
