package prompt

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/Conceptual-Machines/thumbforge-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetThumbnailImageTemplate loads the image-generation prompt template
func (l *Loader) GetThumbnailImageTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.ThumbnailImagePromptTxt)), nil
}

// GetVideoSuggestionsTemplate loads the title/description prompt template
func (l *Loader) GetVideoSuggestionsTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.VideoSuggestionsPromptTxt)), nil
}

// GetEnhanceTemplate loads the prompt-enhancement template
func (l *Loader) GetEnhanceTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.EnhancePromptTxt)), nil
}

// GetVariationHints loads the per-index creative hints, skipping comments and blank lines
func (l *Loader) GetVariationHints() ([]string, error) {
	var hints []string
	scanner := bufio.NewScanner(bytes.NewReader(embedded.VariationHintsTxt))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hints = append(hints, line)
	}
	return hints, scanner.Err()
}
