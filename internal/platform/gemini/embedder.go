package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/generation"
	"google.golang.org/genai"
)

// Embed implements generation.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: nothing to embed", generation.ErrGenerationFailed)
	}

	return callWithRetry(ctx, c, "embed_content", func(ctx context.Context) ([]float32, error) {
		resp, err := c.models.EmbedContent(ctx, c.config.EmbeddingModel, genai.Text(text), nil)
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
			return nil, fmt.Errorf("%w: no embedding returned", generation.ErrInvalidResponse)
		}
		return resp.Embeddings[0].Values, nil
	})
}

// EmbeddingModel returns the model vectors are produced with.
func (c *Client) EmbeddingModel() string {
	return c.config.EmbeddingModel
}
