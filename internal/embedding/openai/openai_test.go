package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpusqa/internal/embedding"
)

func stubServer(t *testing.T, vec string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":%s}],"model":"text-embedding-3-small","usage":{"prompt_tokens":1,"total_tokens":1}}`, vec)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func stubClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "test-key")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY"})
	require.NoError(t, err)
	return c
}

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_EMBED_KEY"})
	assert.Error(t, err)
}

func TestEmbedTooShort(t *testing.T) {
	c := stubClient(t, stubServer(t, "[1,0]"))
	_, err := c.Embed(context.Background(), " a ")
	assert.ErrorIs(t, err, embedding.ErrTextTooShort)
}

func TestEmbedNormalizesAndCorrectsDimension(t *testing.T) {
	c := stubClient(t, stubServer(t, "[3,4,0,0,0]"))
	assert.Equal(t, 1536, c.Dimension())

	vec, err := c.Embed(context.Background(), "texto de prueba")
	require.NoError(t, err)
	require.Len(t, vec, 5)
	assert.InDelta(t, 0.6, vec[0], 1e-9)
	assert.InDelta(t, 0.8, vec[1], 1e-9)
	assert.Equal(t, 5, c.Dimension())
}

func TestEmbedConcurrent(t *testing.T) {
	c := stubClient(t, stubServer(t, "[0.6,0.8,0,0,0]"))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := c.Embed(context.Background(), "consulta concurrente de prueba")
			if err != nil {
				errs <- err
				return
			}
			if len(vec) != 5 {
				errs <- fmt.Errorf("unexpected dimension %d", len(vec))
			}
			_ = c.Dimension()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 5, c.Dimension())
}
