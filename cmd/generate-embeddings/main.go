package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"corpusqa/internal/chunker"
	"corpusqa/internal/config"
	"corpusqa/internal/domain"
	"corpusqa/internal/embedding"
	"corpusqa/internal/embedding/local"
	"corpusqa/internal/embedding/openai"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, outPath string
	var plain bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&outPath, "out", "", "Snapshot output path (defaults to the configured snapshot path)")
	flag.BoolVar(&plain, "plain", false, "Write uncompressed JSON instead of gzip")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: generate-embeddings [--config=config.yaml] [--out=snapshot.json.gz] file1.txt [dir ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if outPath == "" {
		outPath = cfg.Store.SnapshotPath
		if !plain && !strings.HasSuffix(outPath, ".gz") {
			outPath += ".gz"
		}
	}

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "local", "":
		emb = local.NewEmbedder(local.DefaultDimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	files, err := collectTextFiles(inputs)
	if err != nil {
		log.Fatalf("failed to collect input files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no .txt files found in %v", inputs)
	}

	ch := chunker.NewSmartChunker(cfg.Chunker.MaxSize, cfg.Chunker.Overlap, cfg.Chunker.MinChunkSize)

	ctx := context.Background()
	var entries []domain.PassageEntry
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		text := chunker.CleanText(string(raw))
		spans := ch.Chunk(text)
		fileName := filepath.Base(path)
		for i, span := range spans {
			vec, err := emb.Embed(ctx, span.Content)
			if err != nil {
				log.Printf("skipping chunk %d of %s: %v", i, fileName, err)
				continue
			}
			idx, start, end := i, span.Start, span.End
			entries = append(entries, domain.PassageEntry{
				Content:   span.Content,
				Embedding: vec,
				Metadata: domain.PassageMetadata{
					FileName:    fileName,
					ChunkIndex:  &idx,
					ChunkStart:  &start,
					ChunkEnd:    &end,
					ContentType: "text",
					ChunkSize:   len(span.Content),
				},
			})
		}
		fmt.Printf("%s: %d chunks\n", fileName, len(spans))
	}
	if len(entries) == 0 {
		log.Fatalf("no embeddable chunks produced")
	}

	compression := "gzip"
	if plain {
		compression = "none"
	}
	snap := domain.Snapshot{
		Metadata: &domain.SnapshotMetadata{
			SnapshotID:      uuid.NewString(),
			GeneratedAt:     time.Now().UTC(),
			Model:           emb.ModelID(),
			ChunkSize:       cfg.Chunker.MaxSize,
			ChunkOverlap:    cfg.Chunker.Overlap,
			TotalDocuments:  len(files),
			TotalEmbeddings: len(entries),
			Dimensions:      emb.Dimension(),
			Compression:     compression,
		},
		Entries: entries,
	}

	if err := writeSnapshot(outPath, &snap, !plain); err != nil {
		log.Fatalf("write snapshot: %v", err)
	}
	fmt.Printf("wrote %d embeddings from %d documents to %s\n", len(entries), len(files), outPath)
}

// collectTextFiles expands directories into their .txt files, depth one.
func collectTextFiles(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		dirEntries, err := os.ReadDir(in)
		if err != nil {
			return nil, err
		}
		for _, de := range dirEntries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".txt") {
				continue
			}
			files = append(files, filepath.Join(in, de.Name()))
		}
	}
	return files, nil
}

func writeSnapshot(path string, snap *domain.Snapshot, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if compress {
		gw := gzip.NewWriter(f)
		if err := json.NewEncoder(gw).Encode(snap); err != nil {
			gw.Close()
			f.Close()
			return err
		}
		if err := gw.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
