package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"corpusqa/internal/config"
	"corpusqa/internal/domain"
	"corpusqa/internal/embedding"
	"corpusqa/internal/embedding/local"
	"corpusqa/internal/embedding/openai"
	"corpusqa/internal/quality"
	"corpusqa/internal/service"
	"corpusqa/internal/tui"
	"corpusqa/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var diag bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/corpusqa/config.yaml if not provided)")
	flag.BoolVar(&diag, "diag", false, "Print corpus diagnostics and exit")
	flag.Parse()

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

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Assemble components
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

	store := vectorstore.New(cfg.Store.SnapshotPath, emb.ModelID(), logger)

	rules := quality.Preset(cfg.Quality.Preset)
	gate := quality.Gate{
		MinTopScore: cfg.Quality.ConfidenceThreshold,
		MinResults:  cfg.Quality.MinResults,
	}

	retriever := service.NewRetriever(emb, store, rules, gate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Load(ctx); err != nil {
		logger.Warn("corpus snapshot not loaded; queries will report unavailable",
			zap.String("path", cfg.Store.SnapshotPath), zap.Error(err))
	}

	if diag {
		d := retriever.Diagnostics(ctx)
		fmt.Printf("loaded: %v\n", d.IsLoaded)
		fmt.Printf("entries: %d\n", d.EntryCount)
		fmt.Printf("model: %s\n", d.ModelID)
		fmt.Printf("dimension: %d\n", d.Dimension)
		if d.SampleContent != "" {
			fmt.Printf("sample: %s\n", d.SampleContent)
		}
		return
	}

	if cfg.Store.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("snapshot watcher stopped", zap.Error(err))
			}
		}()
	}

	opts := service.Options{
		MatchCount:         cfg.Retrieval.MatchCount,
		MinSimilarity:      cfg.Retrieval.MinSimilarity,
		RequireHighQuality: true,
	}
	summary := corpusSummary(retriever.Diagnostics(ctx))

	m := tui.New(retriever, opts, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func corpusSummary(d domain.Diagnostics) string {
	if !d.IsLoaded {
		return "Corpus no cargado"
	}
	return fmt.Sprintf("%d pasajes | modelo %s | dimensión %d", d.EntryCount, d.ModelID, d.Dimension)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
