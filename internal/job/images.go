package job

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// ImageJob renders one picture of every generated recipe.
type ImageJob struct {
	generator generation.ImageGenerator
	format    string
	prompts   *Prompts
}

// NormalizeImageFormat maps a format name to the file extension used for
// artifacts: "jpg" (also for "jpeg" and "") or "png".
func NormalizeImageFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "jpg", "jpeg":
		return "jpg", nil
	case "png":
		return "png", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ImageMIMEType returns the MIME type requested from the image model for a
// normalized format.
func ImageMIMEType(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/jpeg"
}

// NewImageJob creates an image job writing artifacts in the given format.
func NewImageJob(generator generation.ImageGenerator, format string, prompts *Prompts) (*ImageJob, error) {
	ext, err := NormalizeImageFormat(format)
	if err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &ImageJob{generator: generator, format: ext, prompts: prompts}, nil
}

// Kind implements Job
func (j *ImageJob) Kind() Kind { return KindImages }

// Extension implements Job
func (j *ImageJob) Extension() string { return j.format }

// Fields implements Job. An image needs recipe text to be drawn from.
func (j *ImageJob) Fields(item *domain.WorkItem) ([]domain.FieldKey, error) {
	if sourceText(item, "text") == "" {
		return nil, fmt.Errorf("%w: %s has no recipe text", ErrNoSourceText, item.Identity)
	}
	return nil, nil
}

// Process implements ArtifactJob
func (j *ImageJob) Process(ctx context.Context, item *domain.WorkItem) ([]byte, error) {
	prompt, err := j.prompts.Image(
		sourceText(item, "title"),
		sourceText(item, "description"),
		sourceText(item, "text"),
	)
	if err != nil {
		return nil, err
	}
	return j.generator.GenerateImage(ctx, prompt)
}
