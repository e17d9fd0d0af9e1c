package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/recipe-forge/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// CompleteFn allows test cases to mock the Complete behavior
	CompleteFn func(ctx context.Context, req generation.ChatRequest) (string, error)

	// Default response values
	Text string
	Err  error

	mu       sync.Mutex
	requests []generation.ChatRequest
}

// Complete implements the generation.Generator interface
func (m *MockGenerator) Complete(ctx context.Context, req generation.ChatRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, req)
	}
	return m.Text, m.Err
}

// Calls returns how many times Complete was called
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request passed to Complete
func (m *MockGenerator) Requests() []generation.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ChatRequest(nil), m.requests...)
}

// MockEmbedder implements generation.Embedder for testing
type MockEmbedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)

	Vector []float32
	Err    error

	mu    sync.Mutex
	texts []string
}

// Embed implements the generation.Embedder interface
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return m.Vector, m.Err
}

// Texts returns every text passed to Embed
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// MockImageGenerator implements generation.ImageGenerator for testing
type MockImageGenerator struct {
	GenerateImageFn func(ctx context.Context, prompt string) ([]byte, error)

	Image []byte
	Err   error

	mu      sync.Mutex
	prompts []string
}

// GenerateImage implements the generation.ImageGenerator interface
func (m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, prompt)
	}
	return m.Image, m.Err
}

// Prompts returns every prompt passed to GenerateImage
func (m *MockImageGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
