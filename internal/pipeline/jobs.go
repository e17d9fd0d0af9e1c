package pipeline

import (
	"fmt"

	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/job"
)

// Default directories of each job kind, relative to the working directory.
const (
	DefaultRecipeDir      = "json_recipes"
	DefaultTranslationDir = "translated_recipes"
	DefaultImageDir       = "images"
	DefaultEmbeddingDir   = "embeddings"
)

// DefaultDirs returns the source and output directories a kind uses when
// none are configured. Recipes have no source directory; they are read from
// the input file.
func DefaultDirs(kind job.Kind) (source, output string) {
	switch kind {
	case job.KindTranslate:
		return DefaultRecipeDir, DefaultTranslationDir
	case job.KindImages:
		return DefaultRecipeDir, DefaultImageDir
	case job.KindEmbed:
		return DefaultRecipeDir, DefaultEmbeddingDir
	default:
		return "", DefaultRecipeDir
	}
}

// JobDeps holds what BuildJob may need. Only the clients of the requested
// kind have to be set.
type JobDeps struct {
	Prompts *job.Prompts

	// ChatModel is the model chat requests are addressed to
	ChatModel string

	// Languages are the translation targets
	Languages []string

	Embedder       generation.Embedder
	EmbeddingModel string

	Images      generation.ImageGenerator
	ImageFormat string
}

// BuildJob creates the job of the given kind.
func BuildJob(kind job.Kind, deps JobDeps) (job.Job, error) {
	prompts := deps.Prompts
	if prompts == nil {
		prompts = job.DefaultPrompts()
	}

	switch kind {
	case job.KindRecipe:
		return job.NewRecipeJob(deps.ChatModel, prompts), nil
	case job.KindTranslate:
		return job.NewTranslationJob(deps.ChatModel, deps.Languages, prompts), nil
	case job.KindImages:
		if deps.Images == nil {
			return nil, fmt.Errorf("%w: image generator for %s", ErrMissingDependency, kind)
		}
		j, err := job.NewImageJob(deps.Images, deps.ImageFormat, prompts)
		if err != nil {
			return nil, err
		}
		return j, nil
	case job.KindEmbed:
		if deps.Embedder == nil {
			return nil, fmt.Errorf("%w: embedder for %s", ErrMissingDependency, kind)
		}
		return job.NewEmbeddingJob(deps.Embedder, deps.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("%w: %q", job.ErrUnknownKind, kind)
	}
}
