package models

import (
	"fmt"
	"time"
)

// VariationsPerCycle is the fixed number of variations generated per cycle.
const VariationsPerCycle = 3

// VariationStatus tracks the lifecycle of a single variation.
type VariationStatus string

const (
	VariationPending   VariationStatus = "pending"
	VariationCompleted VariationStatus = "completed"
	VariationFailed    VariationStatus = "failed"
)

// ThumbnailVariation is one generated candidate image.
type ThumbnailVariation struct {
	ID             string          `json:"id"`
	CycleID        string          `json:"cycle_id"`
	VariationIndex int             `json:"variation_index"`
	ImageData      string          `json:"image_data"` // data URI
	SourcePrompt   string          `json:"source_prompt"`
	Style          string          `json:"style"`
	Title          string          `json:"title,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         VariationStatus `json:"status"`
}

// DownloadName is the suggested file name for an exported variation.
func (v ThumbnailVariation) DownloadName() string {
	return fmt.Sprintf("viralthumb-variation-%d.jpg", v.VariationIndex+1)
}

// VideoSuggestions holds titles aligned positionally with the variations plus a
// shared description.
type VideoSuggestions struct {
	Titles      []string `json:"titles"`
	Description string   `json:"description"`
}

// PlaceholderTitle is the title used for slot index when suggestions are unavailable.
func PlaceholderTitle(index int) string {
	return fmt.Sprintf("Viral Variation #%d", index+1)
}

// PlaceholderDescription is used when suggestion generation fails.
const PlaceholderDescription = "An attention-grabbing video built around this thumbnail. Watch until the end!"

// PlaceholderSuggestions returns the fixed fallback suggestion set.
func PlaceholderSuggestions() VideoSuggestions {
	titles := make([]string, VariationsPerCycle)
	for i := range titles {
		titles[i] = PlaceholderTitle(i)
	}
	return VideoSuggestions{Titles: titles, Description: PlaceholderDescription}
}

// TitleFor returns the title aligned with a variation index, or "".
func (s VideoSuggestions) TitleFor(index int) string {
	if index < 0 || index >= len(s.Titles) {
		return ""
	}
	return s.Titles[index]
}
