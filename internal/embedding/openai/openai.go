package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"corpusqa/internal/embedding"
)

// Client embeds text through an OpenAI-compatible embeddings endpoint. One
// instance serves all concurrent queries; dim starts from the model table
// and is corrected from the first response, so it is atomic.
type Client struct {
	api   *openai.Client
	model string
	dim   atomic.Int64
}

// Config configures the remote embedding provider.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates the provider. The API key is read from the environment
// variable named in cfg.APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	dim := 1536
	if cfg.Model == "text-embedding-3-large" {
		dim = 3072
	}
	c := &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.Model,
	}
	c.dim.Store(int64(dim))
	return c, nil
}

// Embed returns the L2-normalized embedding for text. Inputs below the
// minimum length are declined with embedding.ErrTextTooShort.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if len(strings.TrimSpace(text)) < embedding.MinTextLength {
		return nil, embedding.ErrTextTooShort
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned for model %s", c.model)
	}
	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, x := range raw {
		vec[i] = float64(x)
	}
	if int(c.dim.Load()) != len(vec) {
		c.dim.Store(int64(len(vec)))
	}
	embedding.Normalize(vec)
	return vec, nil
}

// Dimension returns the vector dimension for the configured model.
func (c *Client) Dimension() int { return int(c.dim.Load()) }

// ModelID identifies the embedding model; stored in snapshot metadata and
// checked at load time.
func (c *Client) ModelID() string { return c.model }
