package job

import (
	"context"
	"fmt"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// ChatProcessor runs a chat job synchronously: one completion per missing
// field, then the rendered artifact. Fields resolved by an earlier attempt
// are not requested again.
type ChatProcessor struct {
	job       ChatJob
	generator generation.Generator
}

// NewChatProcessor binds a chat job to a generator.
func NewChatProcessor(job ChatJob, generator generation.Generator) *ChatProcessor {
	return &ChatProcessor{job: job, generator: generator}
}

// Process generates every missing field of the item and encodes it.
func (p *ChatProcessor) Process(ctx context.Context, item *domain.WorkItem) ([]byte, error) {
	for _, field := range item.MissingFields() {
		text, err := Complete(ctx, p.generator, p.job, item, field)
		if err != nil {
			return nil, err
		}
		if err := item.SetField(field, text); err != nil {
			return nil, err
		}
	}
	return p.job.Encode(item)
}

// Complete builds the request for one field and returns the normalized
// answer. A blank answer is reported as generation.ErrEmptyResponse.
func Complete(
	ctx context.Context,
	generator generation.Generator,
	job ChatJob,
	item *domain.WorkItem,
	field domain.FieldKey,
) (string, error) {
	req, err := job.Request(item, field)
	if err != nil {
		return "", err
	}
	text, err := generator.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", item.Identity, field, err)
	}
	text = generation.StripCodeFence(text)
	if text == "" {
		return "", fmt.Errorf("%s %s: %w", item.Identity, field, generation.ErrEmptyResponse)
	}
	return text, nil
}
