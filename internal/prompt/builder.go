package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
)

// Builder renders the generation prompts from the embedded templates
type Builder struct {
	loader      *Loader
	image       *template.Template
	suggestions *template.Template
	enhance     *template.Template
	hints       []string
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() (*Builder, error) {
	loader := NewPromptLoader()
	b := &Builder{loader: loader}

	var err error
	if b.image, err = parseTemplate("thumbnail_image", loader.GetThumbnailImageTemplate); err != nil {
		return nil, err
	}
	if b.suggestions, err = parseTemplate("video_suggestions", loader.GetVideoSuggestionsTemplate); err != nil {
		return nil, err
	}
	if b.enhance, err = parseTemplate("enhance_prompt", loader.GetEnhanceTemplate); err != nil {
		return nil, err
	}
	if b.hints, err = loader.GetVariationHints(); err != nil {
		return nil, fmt.Errorf("failed to load variation hints: %w", err)
	}
	return b, nil
}

// MustNewPromptBuilder is NewPromptBuilder for package-level initialization
func MustNewPromptBuilder() *Builder {
	b, err := NewPromptBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

func parseTemplate(name string, load func() (string, error)) (*template.Template, error) {
	text, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s template: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return tmpl, nil
}

// VariationHint returns the creative hint for a variation index
func (b *Builder) VariationHint(index int) (string, error) {
	if index < 0 || index >= len(b.hints) {
		return "", fmt.Errorf("no creative hint for variation index %d", index)
	}
	return b.hints[index], nil
}

// HintCount returns how many distinct variation hints are available
func (b *Builder) HintCount() int {
	return len(b.hints)
}

// BuildImagePrompt composes the prompt for one variation
func (b *Builder) BuildImagePrompt(concept, style string, index int) (string, error) {
	hint, err := b.VariationHint(index)
	if err != nil {
		return "", err
	}
	// Hints end with a period and the template adds its own.
	hint = strings.TrimSuffix(hint, ".")
	return render(b.image, map[string]any{
		"Concept": strings.TrimSpace(concept),
		"Style":   models.StyleOrDefault(style),
		"Hint":    hint,
	})
}

// BuildSuggestionsPrompt composes the title/description request
func (b *Builder) BuildSuggestionsPrompt(concept, style string, count, imageCount int) (string, error) {
	return render(b.suggestions, map[string]any{
		"Concept":    strings.TrimSpace(concept),
		"Style":      models.StyleOrDefault(style),
		"Count":      count,
		"ImageCount": imageCount,
	})
}

// BuildEnhancePrompt composes the prompt-rewrite request
func (b *Builder) BuildEnhancePrompt(concept string) (string, error) {
	return render(b.enhance, map[string]any{
		"Concept": strings.TrimSpace(concept),
	})
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
