package domain

import "time"

// PassageMetadata describes where a passage came from. Snapshots produced by
// page-based ingestion carry PageNumber; chunk-based ingestion carries
// ChunkIndex with the character span instead. Fields use the JSON names of the
// snapshot file format.
type PassageMetadata struct {
	FileName    string `json:"fileName"`
	PageNumber  int    `json:"pageNumber,omitempty"`
	ChunkIndex  *int   `json:"chunkIndex,omitempty"`
	ChunkStart  *int   `json:"chunkStart,omitempty"`
	ChunkEnd    *int   `json:"chunkEnd,omitempty"`
	TotalPages  int    `json:"totalPages,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	ChunkSize   int    `json:"chunkSize,omitempty"`
}

// PassageEntry is one retrievable unit: cleaned passage text with its
// embedding vector. All entries in a snapshot share the same dimension and
// embedding model.
type PassageEntry struct {
	Content   string          `json:"content"`
	Embedding []float64       `json:"embedding"`
	Metadata  PassageMetadata `json:"metadata"`
}

// SnapshotMetadata is provenance recorded at ingestion time. It is used for
// diagnostics and the model guard at load, never for scoring.
type SnapshotMetadata struct {
	SnapshotID      string    `json:"snapshotId,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt"`
	Model           string    `json:"model"`
	ChunkSize       int       `json:"chunkSize"`
	ChunkOverlap    int       `json:"chunkOverlap"`
	TotalDocuments  int       `json:"totalDocuments"`
	TotalEmbeddings int       `json:"totalEmbeddings"`
	Dimensions      int       `json:"embeddingDimensions"`
	Compression     string    `json:"compression,omitempty"`
}

// Snapshot is the deployable unit: the full embedded corpus plus provenance.
type Snapshot struct {
	Metadata *SnapshotMetadata `json:"metadata,omitempty"`
	Entries  []PassageEntry    `json:"embeddings"`
}

// SearchResult is a per-query candidate. Similarity starts as raw cosine
// similarity and is overwritten with the quality-adjusted score when the
// quality filter runs.
type SearchResult struct {
	Content       string
	Similarity    float64
	Metadata      PassageMetadata
	IsUseful      bool
	QualityReason string
}

// RAGContext is the whole contract the downstream generation step needs.
type RAGContext struct {
	Context      string
	TopScore     float64
	ResultsCount int
}

// Diagnostics reports corpus store health for operational checks.
type Diagnostics struct {
	IsLoaded      bool
	EntryCount    int
	ModelID       string
	Dimension     int
	SampleContent string
}

// Span is one chunk of a source document with its character range.
type Span struct {
	Content string
	Start   int
	End     int
}

// Chunker splits cleaned document text into embeddable spans.
type Chunker interface {
	Chunk(text string) []Span
}
