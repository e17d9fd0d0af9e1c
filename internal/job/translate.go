package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// translatable lists the recipe fields that are translated, in artifact order.
var translatable = []struct {
	name  string
	label string
}{
	{"title", "`title`"},
	{"description", "`description`"},
	{"text", "`recipe text`"},
}

// TranslationJob translates the French fields of generated recipes into a
// list of target languages. Every (field, language) pair is one request.
type TranslationJob struct {
	model     string
	languages []string
	prompts   *Prompts
}

// NewTranslationJob creates a translation job. The source language is
// dropped from the targets; an empty list falls back to DefaultLanguages.
func NewTranslationJob(model string, languages []string, prompts *Prompts) *TranslationJob {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	targets := make([]string, 0, len(languages))
	for _, lang := range ParseLanguages(languages...) {
		if lang != SourceLanguage {
			targets = append(targets, lang)
		}
	}
	return &TranslationJob{model: model, languages: targets, prompts: prompts}
}

// Languages returns the target languages in order.
func (j *TranslationJob) Languages() []string {
	return append([]string(nil), j.languages...)
}

// Kind implements Job
func (j *TranslationJob) Kind() Kind { return KindTranslate }

// Extension implements Job
func (j *TranslationJob) Extension() string { return "json" }

// TranslationField names the translation of a source field into lang.
func TranslationField(field, lang string) domain.FieldKey {
	return domain.FieldKey(field + "_" + lang)
}

// Fields implements Job. Only non-empty source fields are translated; an
// item with no source text at all is rejected.
func (j *TranslationJob) Fields(item *domain.WorkItem) ([]domain.FieldKey, error) {
	present := j.sourceFields(item)
	if len(present) == 0 {
		return nil, fmt.Errorf("%w: %s has no title, description or text", ErrNoSourceText, item.Identity)
	}
	fields := make([]domain.FieldKey, 0, len(present)*len(j.languages))
	for _, lang := range j.languages {
		for _, name := range present {
			fields = append(fields, TranslationField(name, lang))
		}
	}
	return fields, nil
}

func (j *TranslationJob) sourceFields(item *domain.WorkItem) []string {
	var present []string
	for _, f := range translatable {
		if sourceText(item, f.name) != "" {
			present = append(present, f.name)
		}
	}
	return present
}

// Request implements ChatJob
func (j *TranslationJob) Request(item *domain.WorkItem, field domain.FieldKey) (generation.ChatRequest, error) {
	name, lang, ok := strings.Cut(string(field), "_")
	if !ok || lang == "" {
		return generation.ChatRequest{}, fmt.Errorf("%w: %q", ErrUnsupportedField, field)
	}
	label := ""
	for _, f := range translatable {
		if f.name == name {
			label = f.label
		}
	}
	text := sourceText(item, name)
	if label == "" || text == "" {
		return generation.ChatRequest{}, fmt.Errorf("%w: %q", ErrUnsupportedField, field)
	}

	prompt, err := j.prompts.Translation(label, DescribeLanguage(lang), text)
	if err != nil {
		return generation.ChatRequest{}, err
	}
	return generation.NewUserPrompt(j.model, prompt), nil
}

// Encode implements ChatJob. The artifact holds the French originals followed
// by the translations, language by language.
func (j *TranslationJob) Encode(item *domain.WorkItem) ([]byte, error) {
	results, err := item.Results()
	if err != nil {
		return nil, err
	}

	obj := make(orderedObject, 0, len(translatable)+len(results))
	for _, f := range translatable {
		obj = append(obj, member{f.name + "_" + SourceLanguage, sourceText(item, f.name)})
	}
	for _, lang := range j.languages {
		for _, f := range translatable {
			if v, ok := results[TranslationField(f.name, lang)]; ok {
				obj = append(obj, member{string(TranslationField(f.name, lang)), v})
			}
		}
	}
	return marshalArtifact(obj)
}

// sourceText returns a trimmed source field, falling back to the item's own
// title and description.
func sourceText(item *domain.WorkItem, name string) string {
	if v := strings.TrimSpace(item.Source[name]); v != "" {
		return v
	}
	switch name {
	case "title":
		return strings.TrimSpace(item.Title)
	case "description":
		return strings.TrimSpace(item.Description)
	}
	return ""
}

type member struct {
	key   string
	value string
}

// orderedObject is a JSON object whose keys keep insertion order.
type orderedObject []member

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(m.key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(m.value); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
