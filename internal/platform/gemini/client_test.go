package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels implements models with function fields
type fakeModels struct {
	generateContentFn func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	embedContentFn func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	generateImagesFn func(ctx context.Context, model string, prompt string,
		config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	calls int
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	return f.generateContentFn(ctx, model, contents, config)
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content,
	config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls++
	return f.embedContentFn(ctx, model, contents, config)
}

func (f *fakeModels) GenerateImages(ctx context.Context, model string, prompt string,
	config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.calls++
	return f.generateImagesFn(ctx, model, prompt, config)
}

func testClient(m models) *Client {
	return newClient(m, Config{MaxRetries: 2, RetryDelay: time.Millisecond},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestNewClient_Defaults(t *testing.T) {
	c := newClient(&fakeModels{}, Config{MaxRetries: -1}, nil)
	assert.Equal(t, DefaultModel, c.config.Model)
	assert.Equal(t, DefaultEmbeddingModel, c.EmbeddingModel())
	assert.Equal(t, DefaultImageModel, c.config.ImageModel)
	assert.Equal(t, DefaultMaxRetries, c.config.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, c.config.RetryDelay)
}

func TestComplete(t *testing.T) {
	fake := &fakeModels{
		generateContentFn: func(_ context.Context, model string, contents []*genai.Content,
			config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, DefaultModel, model)
			require.Len(t, contents, 1)
			assert.Equal(t, "Écris la recette", contents[0].Parts[0].Text)
			require.NotNil(t, config)
			assert.Equal(t, "Tu es un chef.", config.SystemInstruction.Parts[0].Text)
			return textResponse("  ## Ingrédients  "), nil
		},
	}

	req := generation.ChatRequest{Messages: []generation.Message{
		{Role: "system", Content: "Tu es un chef."},
		{Role: "user", Content: "Écris la recette"},
	}}
	text, err := testClient(fake).Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "## Ingrédients", text)
}

func TestComplete_RetriesTransientErrors(t *testing.T) {
	fake := &fakeModels{}
	fake.generateContentFn = func(context.Context, string, []*genai.Content,
		*genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		if fake.calls < 3 {
			return nil, genai.APIError{Code: 503, Message: "overloaded"}
		}
		return textResponse("ok"), nil
	}

	text, err := testClient(fake).Complete(context.Background(), generation.NewUserPrompt("", "p"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, fake.calls)
}

func TestComplete_ExhaustsRetries(t *testing.T) {
	fake := &fakeModels{
		generateContentFn: func(context.Context, string, []*genai.Content,
			*genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("connection reset by peer")
		},
	}

	_, err := testClient(fake).Complete(context.Background(), generation.NewUserPrompt("", "p"))
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 3, fake.calls)
}

func TestComplete_PermanentErrors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		err     error
		wantErr error
	}{
		{
			name:    "bad request",
			err:     genai.APIError{Code: 400, Message: "invalid argument"},
			wantErr: generation.ErrGenerationFailed,
		},
		{
			name: "safety block",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
			}}},
			wantErr: generation.ErrContentBlocked,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name:    "blank text",
			resp:    textResponse("   "),
			wantErr: generation.ErrEmptyResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeModels{
				generateContentFn: func(context.Context, string, []*genai.Content,
					*genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					return tc.resp, tc.err
				},
			}
			_, err := testClient(fake).Complete(context.Background(), generation.NewUserPrompt("", "p"))
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, 1, fake.calls, "permanent errors are not retried")
		})
	}
}

func TestEmbed(t *testing.T) {
	fake := &fakeModels{
		embedContentFn: func(_ context.Context, model string, contents []*genai.Content,
			_ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			assert.Equal(t, DefaultEmbeddingModel, model)
			assert.Equal(t, "Tarte: sucrée", contents[0].Parts[0].Text)
			return &genai.EmbedContentResponse{
				Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
			}, nil
		},
	}

	vec, err := testClient(fake).Embed(context.Background(), "Tarte: sucrée")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = testClient(fake).Embed(context.Background(), "  ")
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestGenerateImage(t *testing.T) {
	fake := &fakeModels{
		generateImagesFn: func(_ context.Context, model string, prompt string,
			config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
			assert.Equal(t, DefaultImageModel, model)
			assert.EqualValues(t, 1, config.NumberOfImages)
			assert.Equal(t, DefaultImageMIMEType, config.OutputMIMEType)
			if prompt == "blocked" {
				return &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
					{RAIFilteredReason: "unsafe"},
				}}, nil
			}
			return &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
				{Image: &genai.Image{ImageBytes: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}},
			}}, nil
		},
	}

	data, err := testClient(fake).GenerateImage(context.Background(), "a plated tart")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)

	_, err = testClient(fake).GenerateImage(context.Background(), "blocked")
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
}

func TestClientImplementsInterfaces(t *testing.T) {
	var _ generation.Generator = (*Client)(nil)
	var _ generation.Embedder = (*Client)(nil)
	var _ generation.ImageGenerator = (*Client)(nil)
	var _ models = (*genai.Models)(nil)
}
