package mistral

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/redact"
	"github.com/sethvargo/go-retry"
)

// Defaults applied by NewClient
const (
	DefaultBaseURL    = "https://api.mistral.ai"
	DefaultModel      = "mistral-small-latest"
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 120 * time.Second

	// maxErrorBody bounds how much of a provider error body ends up in an error
	maxErrorBody = 512
)

// Config holds the client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration

	// HTTPClient overrides the default client, mainly for tests
	HTTPClient *http.Client
}

// Client talks to the Mistral API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	retryDelay time.Duration
	http       *http.Client
	logger     *slog.Logger
}

// NewClient validates the configuration and creates a client.
//
// Parameters:
//   - cfg: API credentials and retry settings; zero values take the package defaults
//   - logger: structured logger for request logging; nil uses slog.Default
//
// Returns:
//   - The client
//   - generation.ErrInvalidConfig if no API key is set
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: mistral api key is not set", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		http:       httpClient,
		logger:     logger.With("component", "mistral_client"),
	}, nil
}

// Model returns the default model requests are issued for.
func (c *Client) Model() string {
	return c.model
}

// request is one HTTP call to the API.
type request struct {
	method      string
	path        string
	contentType string
	body        []byte
}

// send performs a single request and returns the response body. Transport
// errors, 429 and 5xx responses wrap generation.ErrTransientFailure; other
// non-2xx responses wrap generation.ErrGenerationFailed.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	c.logger.DebugContext(ctx, "mistral request",
		"req_id", reqID,
		"method", r.method,
		"path", r.path,
		"content_length", len(r.body))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnContext(ctx, "mistral request failed",
			"req_id", reqID,
			"path", r.path,
			"error", redact.Error(err),
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %s %s: %s", generation.ErrTransientFailure, r.method, r.path, redact.Error(err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WarnContext(ctx, "mistral response body close error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", generation.ErrTransientFailure, err)
	}

	c.logger.DebugContext(ctx, "mistral response",
		"req_id", reqID,
		"path", r.path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 == 2 {
		return raw, nil
	}

	cause := generation.ErrGenerationFailed
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		cause = generation.ErrTransientFailure
	}
	return nil, fmt.Errorf("%w: %s %s returned %d: %s",
		cause, r.method, r.path, resp.StatusCode, redact.Body(raw, maxErrorBody))
}

// sendWithRetry retries transient failures with exponential backoff and
// jitter, making at most maxRetries+1 attempts.
func (c *Client) sendWithRetry(ctx context.Context, r request) ([]byte, error) {
	backoff := retry.NewExponential(c.retryDelay)
	backoff = retry.WithJitterPercent(50, backoff)
	backoff = retry.WithMaxRetries(uint64(c.maxRetries), backoff)

	attempt := 0
	return retry.DoValue(ctx, backoff, func(ctx context.Context) ([]byte, error) {
		attempt++
		raw, err := c.send(ctx, r)
		if err != nil && errors.Is(err, generation.ErrTransientFailure) {
			c.logger.WarnContext(ctx, "transient mistral error, retrying",
				"path", r.path,
				"attempt", attempt,
				"max_attempts", c.maxRetries+1,
				"error", err)
			return nil, retry.RetryableError(err)
		}
		return raw, err
	})
}
