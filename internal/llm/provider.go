package llm

import (
	"context"
	"errors"

	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
)

// AspectRatio16x9 is the only aspect ratio requested for thumbnails
const AspectRatio16x9 = "16:9"

var (
	// ErrNoImage is returned when the model answered without an inline image
	ErrNoImage = errors.New("no image data returned from model")
	// ErrNotConfigured is returned when a provider has no credentials
	ErrNotConfigured = errors.New("provider not configured")
)

// ImageProvider generates a single image per call
type ImageProvider interface {
	GenerateImage(ctx context.Context, request *ImageRequest) (*ImageResult, error)
	Name() string
}

// TextProvider produces titles/descriptions and prompt rewrites
type TextProvider interface {
	GenerateSuggestions(ctx context.Context, request *SuggestionRequest) (*models.VideoSuggestions, error)
	EnhancePrompt(ctx context.Context, request *EnhanceRequest) (string, error)
	Name() string
}

// GenerativeClient is the full external capability used by the orchestrator
type GenerativeClient interface {
	GenerateImage(ctx context.Context, request *ImageRequest) (*ImageResult, error)
	GenerateSuggestions(ctx context.Context, request *SuggestionRequest) (*models.VideoSuggestions, error)
	EnhancePrompt(ctx context.Context, request *EnhanceRequest) (string, error)
	Name() string
}

// ImageRequest is one image-generation call
type ImageRequest struct {
	Prompt          string
	ReferenceImages []imagedata.Image // forwarded unaltered as inline data
	AspectRatio     string
}

// ImageResult is the single best image returned by the model
type ImageResult struct {
	Image imagedata.Image
	Model string
	Usage TokenUsage
}

// SuggestionRequest asks for titles aligned with the generated images
type SuggestionRequest struct {
	Prompt     string
	Images     []imagedata.Image
	TitleCount int
}

// EnhanceRequest asks for a rewritten, more visual prompt
type EnhanceRequest struct {
	Prompt string
}

// TokenUsage is a provider-neutral token count
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// AsMap returns the usage in the shape the observability layer expects
func (u TokenUsage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}
