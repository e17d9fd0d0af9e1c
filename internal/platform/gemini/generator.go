package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/generation"
	"google.golang.org/genai"
)

// Complete implements generation.Generator. System messages become the system
// instruction; assistant messages are sent with the model role.
func (c *Client) Complete(ctx context.Context, req generation.ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	var contents []*genai.Content
	var cfg *genai.GenerateContentConfig
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			cfg = &genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(msg.Content, genai.RoleUser),
			}
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("%w: chat request without messages", generation.ErrGenerationFailed)
	}

	return callWithRetry(ctx, c, "generate_content", func(ctx context.Context) (string, error) {
		resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return "", err
		}
		return responseText(resp)
	})
}

// responseText extracts the concatenated text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", generation.ErrEmptyResponse
	}
	return text, nil
}
