package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
)

// ProviderFactory builds the generative client from configured keys and models
type ProviderFactory struct {
	geminiAPIKey     string
	openaiAPIKey     string
	geminiImageModel string
	geminiTextModel  string
	openaiTextModel  string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(geminiAPIKey, openaiAPIKey, geminiImageModel, geminiTextModel, openaiTextModel string) *ProviderFactory {
	return &ProviderFactory{
		geminiAPIKey:     geminiAPIKey,
		openaiAPIKey:     openaiAPIKey,
		geminiImageModel: geminiImageModel,
		geminiTextModel:  geminiTextModel,
		openaiTextModel:  openaiTextModel,
	}
}

// NewClient returns a client that generates images with Gemini and text with
// the named text provider ("gemini" when empty)
func (f *ProviderFactory) NewClient(ctx context.Context, textProvider string) (*Client, error) {
	gemini, err := NewGeminiProvider(ctx, f.geminiAPIKey, f.geminiImageModel, f.geminiTextModel)
	if err != nil {
		return nil, err
	}

	text, err := f.getTextProvider(textProvider, gemini)
	if err != nil {
		return nil, err
	}

	return NewClient(gemini, text), nil
}

// getTextProvider creates a text provider by explicit name
func (f *ProviderFactory) getTextProvider(providerName string, gemini *GeminiProvider) (TextProvider, error) {
	switch strings.ToLower(providerName) {
	case "", providerNameGemini:
		return gemini, nil

	case providerNameOpenAI:
		if f.openaiAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		return NewOpenAIProvider(f.openaiAPIKey, f.openaiTextModel), nil

	default:
		return nil, fmt.Errorf("unknown text provider: %s (allowed: gemini, openai)", providerName)
	}
}

// Client combines an image provider with a text provider
type Client struct {
	image ImageProvider
	text  TextProvider
}

// NewClient combines the two capabilities into one GenerativeClient
func NewClient(image ImageProvider, text TextProvider) *Client {
	return &Client{image: image, text: text}
}

// Name returns "image+text" provider names, or a single name when both match
func (c *Client) Name() string {
	if c.image.Name() == c.text.Name() {
		return c.image.Name()
	}
	return c.image.Name() + "+" + c.text.Name()
}

func (c *Client) GenerateImage(ctx context.Context, request *ImageRequest) (*ImageResult, error) {
	return c.image.GenerateImage(ctx, request)
}

func (c *Client) GenerateSuggestions(ctx context.Context, request *SuggestionRequest) (*models.VideoSuggestions, error) {
	return c.text.GenerateSuggestions(ctx, request)
}

func (c *Client) EnhancePrompt(ctx context.Context, request *EnhanceRequest) (string, error) {
	return c.text.EnhancePrompt(ctx, request)
}

// ReferenceMIMETypes lists the MIME types of the images, for logging
func ReferenceMIMETypes(images []imagedata.Image) []string {
	types := make([]string, len(images))
	for i, img := range images {
		types[i] = img.MIMEType
	}
	return types
}
