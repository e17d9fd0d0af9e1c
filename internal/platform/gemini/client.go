package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/redact"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

// Defaults applied by NewClient
const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultImageModel     = "imagen-3.0-generate-002"
	DefaultImageMIMEType  = "image/jpeg"
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 2 * time.Second
)

// Config holds the Gemini adapter settings.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	ImageModel     string
	ImageMIMEType  string
	MaxRetries     int
	RetryDelay     time.Duration
}

// models is the subset of *genai.Models the adapter uses.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateImages(ctx context.Context, model string, prompt string,
		config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Client implements generation.Generator, generation.Embedder and
// generation.ImageGenerator on top of the Gemini API.
type Client struct {
	models models
	config Config
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewClient creates a Gemini adapter.
//
// Parameters:
//   - ctx: Context for initialization
//   - cfg: API key, model names and retry settings; zero values take the package defaults
//   - logger: A logger for recording operations; nil uses slog.Default
//
// Returns:
//   - The client
//   - generation.ErrInvalidConfig if the API key is missing or the genai client cannot be created
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is not set", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %s", generation.ErrInvalidConfig, redact.Error(err))
	}

	return newClient(client.Models, cfg, logger), nil
}

func newClient(m models, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.ImageMIMEType == "" {
		cfg.ImageMIMEType = DefaultImageMIMEType
	}
	if cfg.MaxRetries < 0 {
		logger.Warn("Invalid max retries value, using default", "max_retries", DefaultMaxRetries)
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Client{
		models: m,
		config: cfg,
		logger: logger.With("component", "gemini_client"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// backoff returns the retry schedule for one call:
// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5)), at most MaxRetries retries.
func (c *Client) backoff() retry.Backoff {
	attempt := 0
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		c.rngMu.Lock()
		jitter := 0.5 + c.rng.Float64()*0.5
		c.rngMu.Unlock()

		delay := float64(c.config.RetryDelay) * math.Pow(2, float64(attempt)) * jitter
		attempt++
		return time.Duration(delay), false
	})
	return retry.WithMaxRetries(uint64(c.config.MaxRetries), b)
}

// callWithRetry runs call until it succeeds, fails permanently, or the retry
// budget is spent. Only errors wrapping generation.ErrTransientFailure are retried.
func callWithRetry[T any](ctx context.Context, c *Client, op string, call func(context.Context) (T, error)) (T, error) {
	attempt := 0
	return retry.DoValue(ctx, c.backoff(), func(ctx context.Context) (T, error) {
		attempt++
		c.logger.DebugContext(ctx, "Making Gemini API call",
			"operation", op,
			"attempt", attempt,
			"max_attempts", c.config.MaxRetries+1)

		v, err := call(ctx)
		if err == nil {
			return v, nil
		}

		err = classify(err)
		if errors.Is(err, generation.ErrTransientFailure) {
			c.logger.WarnContext(ctx, "Gemini API call failed, retrying",
				"operation", op,
				"attempt", attempt,
				"error", redact.Error(err))
			return v, retry.RetryableError(err)
		}

		c.logger.ErrorContext(ctx, "Permanent Gemini error, not retrying",
			"operation", op,
			"attempt", attempt,
			"error", redact.Error(err))
		return v, err
	})
}

// classify maps an API error onto the generation sentinel errors. Errors
// already carrying a sentinel are returned unchanged.
func classify(err error) error {
	for _, sentinel := range []error{
		generation.ErrTransientFailure,
		generation.ErrContentBlocked,
		generation.ErrInvalidResponse,
		generation.ErrEmptyResponse,
		generation.ErrGenerationFailed,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return fmt.Errorf("%w: gemini %d %s", generation.ErrTransientFailure, apiErr.Code, redact.String(apiErr.Message))
		}
		return fmt.Errorf("%w: gemini %d %s", generation.ErrGenerationFailed, apiErr.Code, redact.String(apiErr.Message))
	}

	// Transport errors carry no status code
	return fmt.Errorf("%w: %s", generation.ErrTransientFailure, redact.Error(err))
}
