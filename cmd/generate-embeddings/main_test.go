package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpusqa/internal/domain"
	"corpusqa/internal/vectorstore"
)

func sampleSnapshot() *domain.Snapshot {
	idx, start, end := 0, 0, 24
	return &domain.Snapshot{
		Metadata: &domain.SnapshotMetadata{
			GeneratedAt:     time.Now().UTC(),
			Model:           "local-hash-tf-v1",
			TotalDocuments:  1,
			TotalEmbeddings: 1,
			Dimensions:      3,
			Compression:     "gzip",
		},
		Entries: []domain.PassageEntry{{
			Content:   "pasaje generado de prueba",
			Embedding: []float64{0, 1, 0},
			Metadata: domain.PassageMetadata{
				FileName:   "doc.txt",
				ChunkIndex: &idx,
				ChunkStart: &start,
				ChunkEnd:   &end,
			},
		}},
	}
}

func TestWriteSnapshotGzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snap.json.gz")
	require.NoError(t, writeSnapshot(path, sampleSnapshot(), true))

	s := vectorstore.New(path, "local-hash-tf-v1", nil)
	require.NoError(t, s.Load(context.Background()))
	d := s.Diagnostics()
	assert.Equal(t, 1, d.EntryCount)
	assert.Equal(t, "local-hash-tf-v1", d.ModelID)
}

func TestWriteSnapshotPlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, writeSnapshot(path, sampleSnapshot(), false))

	s := vectorstore.New(path, "", nil)
	require.NoError(t, s.Load(context.Background()))
	assert.True(t, s.IsReady())
}

func TestWriteSnapshotReportsWriteFailure(t *testing.T) {
	// The target directory is actually a file, so the create fails and the
	// error must surface to the caller.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := writeSnapshot(filepath.Join(blocker, "snap.json.gz"), sampleSnapshot(), true)
	assert.Error(t, err)
}

func TestCollectTextFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("uno"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("dos"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.md"), []byte("tres"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	files, err := collectTextFiles([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
	}, files)

	_, err = collectTextFiles([]string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}
