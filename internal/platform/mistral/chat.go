package mistral

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/phrazzld/recipe-forge/internal/generation"
)

// Complete issues a synchronous chat completion and returns the text of the
// first non-blank choice. A request without a model uses the client's model.
func (c *Client) Complete(ctx context.Context, req generation.ChatRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	raw, err := c.sendWithRetry(ctx, request{
		method:      http.MethodPost,
		path:        "/v1/chat/completions",
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		return "", err
	}

	return generation.DecodeChatCompletion(raw)
}
