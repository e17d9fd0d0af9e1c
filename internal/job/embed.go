package job

import (
	"context"
	"fmt"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// EmbeddingJob computes a text embedding of every generated recipe.
type EmbeddingJob struct {
	embedder generation.Embedder
	model    string
}

// NewEmbeddingJob creates an embedding job. The model name is recorded in
// every artifact.
func NewEmbeddingJob(embedder generation.Embedder, model string) *EmbeddingJob {
	return &EmbeddingJob{embedder: embedder, model: model}
}

// Kind implements Job
func (j *EmbeddingJob) Kind() Kind { return KindEmbed }

// Extension implements Job
func (j *EmbeddingJob) Extension() string { return "json" }

// Fields implements Job
func (j *EmbeddingJob) Fields(item *domain.WorkItem) ([]domain.FieldKey, error) {
	if EmbeddingText(item) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSourceText, item.Identity)
	}
	return nil, nil
}

// EmbeddingText is the text an item is embedded from: its French title and
// description followed by the recipe text, without any code fence left
// around it. Translated artifacts are read through their *_fr fields.
func EmbeddingText(item *domain.WorkItem) string {
	title := frenchText(item, "title")
	description := frenchText(item, "description")
	text := generation.StripCodeFence(frenchText(item, "text"))
	if title == "" && description == "" && text == "" {
		return ""
	}
	return title + ": " + description + "\n" + text
}

func frenchText(item *domain.WorkItem, name string) string {
	if v, ok := item.Source[name+"_"+SourceLanguage]; ok && v != "" {
		return v
	}
	return sourceText(item, name)
}

// Embedding is the artifact of an embedding job.
type Embedding struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Vector    []float32 `json:"vector"`
}

// Process implements ArtifactJob
func (j *EmbeddingJob) Process(ctx context.Context, item *domain.WorkItem) ([]byte, error) {
	vector, err := j.embedder.Embed(ctx, EmbeddingText(item))
	if err != nil {
		return nil, err
	}
	return marshalArtifact(Embedding{
		ID:        item.Identity,
		Model:     j.model,
		Dimension: len(vector),
		Vector:    vector,
	})
}
