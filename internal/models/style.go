package models

import (
	"fmt"
	"strings"
)

// Visual styles offered by the generator
const (
	StyleMrBeast    = "MrBeast Style (High Saturation)"
	StyleDarkHorror = "Dark Horror & Gritty"
	StyleTech       = "Tech Futuristic & Clean"
	StyleAnime      = "Anime / Manga Style"

	DefaultStyle = StyleMrBeast
)

// Styles lists the offered visual styles in display order
func Styles() []string {
	return []string{StyleMrBeast, StyleDarkHorror, StyleTech, StyleAnime}
}

// StyleOrDefault trims style and falls back to DefaultStyle when it is blank.
// Styles outside the catalog are passed through.
func StyleOrDefault(style string) string {
	if style = strings.TrimSpace(style); style == "" {
		return DefaultStyle
	}
	return style
}

// IsCatalogStyle reports whether style is one of Styles (case-insensitive)
func IsCatalogStyle(style string) bool {
	style = strings.TrimSpace(style)
	for _, s := range Styles() {
		if strings.EqualFold(s, style) {
			return true
		}
	}
	return false
}

// TemplateCategoryGaming seeds generations with the anime style
const TemplateCategoryGaming = "Gaming"

// Template is a starting point picked from the template library
type Template struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title" binding:"required"`
	Category string `json:"category"`
	ImageURL string `json:"image_url,omitempty"`
}

// Concept is the prompt a template seeds the generator with
func (t Template) Concept() string {
	return fmt.Sprintf("A viral video thumbnail inspired by %q. High energy, engaging elements, and vibrant colors.",
		strings.TrimSpace(t.Title))
}

// Style is the visual style a template preselects
func (t Template) Style() string {
	if strings.EqualFold(strings.TrimSpace(t.Category), TemplateCategoryGaming) {
		return StyleAnime
	}
	return StyleMrBeast
}
