package job

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// FieldText is the generated recipe body.
const FieldText domain.FieldKey = "text"

// RecipeJob generates the French recipe text for a title.
type RecipeJob struct {
	model   string
	prompts *Prompts
}

// NewRecipeJob creates a recipe job for the given model. A nil prompts value
// uses the built-in prompts.
func NewRecipeJob(model string, prompts *Prompts) *RecipeJob {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &RecipeJob{model: model, prompts: prompts}
}

// Kind implements Job
func (j *RecipeJob) Kind() Kind { return KindRecipe }

// Extension implements Job
func (j *RecipeJob) Extension() string { return "json" }

// Fields implements Job
func (j *RecipeJob) Fields(*domain.WorkItem) ([]domain.FieldKey, error) {
	return []domain.FieldKey{FieldText}, nil
}

// Request implements ChatJob
func (j *RecipeJob) Request(item *domain.WorkItem, field domain.FieldKey) (generation.ChatRequest, error) {
	if field != FieldText {
		return generation.ChatRequest{}, fmt.Errorf("%w: %q", ErrUnsupportedField, field)
	}
	prompt, err := j.prompts.Recipe(item.Title, item.Description)
	if err != nil {
		return generation.ChatRequest{}, err
	}
	return generation.NewUserPrompt(j.model, prompt), nil
}

// Recipe is the artifact of a recipe job.
type Recipe struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// Encode implements ChatJob
func (j *RecipeJob) Encode(item *domain.WorkItem) ([]byte, error) {
	results, err := item.Results()
	if err != nil {
		return nil, err
	}
	return marshalArtifact(Recipe{
		Title:       item.Title,
		Description: item.Description,
		Text:        results[FieldText],
	})
}

// marshalArtifact renders v as indented JSON without HTML escaping, so
// accented text and Markdown survive as written.
func marshalArtifact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
