package generation

import "context"

// Generator issues one synchronous chat completion and returns its text.
// This interface serves as a boundary between the dispatch engine and
// external LLM services. Implementations retry transient failures
// internally and report blank answers as ErrEmptyResponse.
type Generator interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ImageGenerator renders one image for a prompt and returns its encoded bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
