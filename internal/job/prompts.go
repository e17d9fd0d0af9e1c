package job

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/afero"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// Template names
const (
	recipeTemplate    = "recipe.tmpl"
	translateTemplate = "translate.tmpl"
	imageTemplate     = "image.tmpl"
)

// Prompts renders the prompt of every job kind.
type Prompts struct {
	tmpl *template.Template
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() *Prompts {
	return &Prompts{tmpl: template.Must(template.ParseFS(defaultTemplates, "templates/*.tmpl"))}
}

// LoadPrompts returns the built-in prompts with any template found in dir
// replacing the built-in one of the same name. An empty dir yields the
// built-in prompts.
func LoadPrompts(fsys afero.Fs, dir string) (*Prompts, error) {
	p := DefaultPrompts()
	if dir == "" {
		return p, nil
	}

	overrides, err := afero.Glob(fsys, filepath.Join(dir, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("list templates in %s: %w", dir, err)
	}
	for _, path := range overrides {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", path, err)
		}
		if _, err := p.tmpl.New(filepath.Base(path)).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", path, err)
		}
	}
	return p, nil
}

func (p *Prompts) render(name string, data any) (string, error) {
	var b strings.Builder
	if err := p.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Recipe renders the recipe prompt.
func (p *Prompts) Recipe(title, description string) (string, error) {
	return p.render(recipeTemplate, struct{ Title, Description string }{title, description})
}

// Translation renders the prompt translating one French field.
func (p *Prompts) Translation(label, language, text string) (string, error) {
	return p.render(translateTemplate, struct{ Label, Language, Text string }{label, language, text})
}

// Image renders the image prompt.
func (p *Prompts) Image(title, description, text string) (string, error) {
	return p.render(imageTemplate, struct{ Title, Description, Text string }{title, description, text})
}
