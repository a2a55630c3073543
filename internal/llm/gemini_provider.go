package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/observability"
	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	maxFeedbackChars   = 200

	defaultGeminiImageModel = "gemini-2.5-flash-image"
	defaultGeminiTextModel  = "gemini-3-flash-preview"
)

// generateContentFunc matches genai's Models.GenerateContent
type generateContentFunc func(
	ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// GeminiProvider implements GenerativeClient using Google's Gemini API
type GeminiProvider struct {
	client     *genai.Client
	generate   generateContentFunc
	imageModel string
	textModel  string
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey, imageModel, textModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	p := newGeminiProvider(client.Models.GenerateContent, imageModel, textModel)
	p.client = client
	return p, nil
}

func newGeminiProvider(generate generateContentFunc, imageModel, textModel string) *GeminiProvider {
	if imageModel == "" {
		imageModel = defaultGeminiImageModel
	}
	if textModel == "" {
		textModel = defaultGeminiTextModel
	}
	return &GeminiProvider{
		generate:   generate,
		imageModel: imageModel,
		textModel:  textModel,
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// GenerateImage requests a single 16:9 image for the prompt and reference images
func (p *GeminiProvider) GenerateImage(ctx context.Context, request *ImageRequest) (*ImageResult, error) {
	startTime := time.Now()
	log.Printf("🖼️  GEMINI IMAGE REQUEST STARTED (Model: %s, references: %d)", p.imageModel, len(request.ReferenceImages))

	transaction := sentry.StartTransaction(ctx, "gemini.generate_image")
	defer transaction.Finish()
	transaction.SetTag("model", p.imageModel)
	transaction.SetTag("provider", providerNameGemini)

	aspectRatio := request.AspectRatio
	if aspectRatio == "" {
		aspectRatio = AspectRatio16x9
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(buildParts(request.Prompt, request.ReferenceImages), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: aspectRatio},
	}

	gen := observability.TraceFromContext(ctx).Generation("gemini.generate_image", map[string]interface{}{
		"model":      p.imageModel,
		"references": len(request.ReferenceImages),
	})
	gen.Input(request.Prompt)

	span := transaction.StartChild("gemini.api_call")
	result, err := p.generate(ctx, p.imageModel, contents, config)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI IMAGE REQUEST FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		gen.Fail(err)
		return nil, fmt.Errorf("gemini image request failed: %w", err)
	}

	img, err := extractImage(result)
	usage := usageFromGemini(result)
	if err != nil {
		transaction.SetTag("success", "false")
		gen.Fail(err)
		return nil, err
	}

	gen.Output(fmt.Sprintf("%s (%d bytes)", img.MIMEType, len(img.Data)))
	gen.Usage(p.imageModel, usage.InputTokens, usage.OutputTokens)
	gen.Finish()

	transaction.SetTag("success", "true")
	log.Printf("✅ GEMINI IMAGE GENERATED in %v (%s, %d bytes)", time.Since(startTime), img.MIMEType, len(img.Data))

	return &ImageResult{Image: img, Model: p.imageModel, Usage: usage}, nil
}

// GenerateSuggestions asks for titles + description using a strict response schema
func (p *GeminiProvider) GenerateSuggestions(ctx context.Context, request *SuggestionRequest) (*models.VideoSuggestions, error) {
	transaction := sentry.StartTransaction(ctx, "gemini.generate_suggestions")
	defer transaction.Finish()
	transaction.SetTag("model", p.textModel)
	transaction.SetTag("provider", providerNameGemini)

	contents := []*genai.Content{
		genai.NewContentFromParts(buildParts(request.Prompt, request.Images), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: mimeTypeJSON,
		ResponseSchema:   suggestionsGeminiSchema(),
	}

	gen := observability.TraceFromContext(ctx).Generation("gemini.generate_suggestions", map[string]interface{}{
		"model":  p.textModel,
		"images": len(request.Images),
	})
	gen.Input(request.Prompt)

	result, err := p.generate(ctx, p.textModel, contents, config)
	if err != nil {
		transaction.SetTag("success", "false")
		gen.Fail(err)
		return nil, fmt.Errorf("gemini suggestions request failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	suggestions, err := parseSuggestions(text)
	if err != nil {
		transaction.SetTag("success", "false")
		gen.Fail(err)
		return nil, err
	}

	usage := usageFromGemini(result)
	gen.Output(suggestions)
	gen.Usage(p.textModel, usage.InputTokens, usage.OutputTokens)
	gen.Finish()

	transaction.SetTag("success", "true")
	return suggestions, nil
}

// EnhancePrompt rewrites a short idea into a descriptive image prompt
func (p *GeminiProvider) EnhancePrompt(ctx context.Context, request *EnhanceRequest) (string, error) {
	gen := observability.TraceFromContext(ctx).Generation("gemini.enhance_prompt", map[string]interface{}{
		"model": p.textModel,
	})
	gen.Input(request.Prompt)

	result, err := p.generate(ctx, p.textModel, genai.Text(request.Prompt), nil)
	if err != nil {
		gen.Fail(err)
		return "", fmt.Errorf("gemini enhance request failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	usage := usageFromGemini(result)
	gen.Output(text)
	gen.Usage(p.textModel, usage.InputTokens, usage.OutputTokens)
	gen.Finish()

	return text, nil
}

// buildParts puts the text prompt first followed by every image as inline data
func buildParts(prompt string, images []imagedata.Image) []*genai.Part {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, img := range images {
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = imagedata.MIMETypeJPEG
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mimeType))
	}
	return parts
}

// extractImage returns the first inline image across candidates. Text-only
// answers (usually a safety refusal) are reported with the model's feedback.
func extractImage(resp *genai.GenerateContentResponse) (imagedata.Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return imagedata.Image{}, fmt.Errorf("%w: no candidates in Gemini response", ErrNoImage)
	}

	var feedback []string
	var finishReason genai.FinishReason
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		if candidate.FinishReason != "" {
			finishReason = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return imagedata.New(part.InlineData.Data, part.InlineData.MIMEType), nil
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				feedback = append(feedback, t)
			}
		}
	}

	msg := truncateRunes(strings.Join(feedback, " "), maxFeedbackChars)
	switch {
	case finishReason != "" && finishReason != genai.FinishReasonStop && finishReason != genai.FinishReasonUnspecified:
		return imagedata.Image{}, fmt.Errorf("%w: generation stopped (%s) %s", ErrNoImage, finishReason, msg)
	case msg != "":
		return imagedata.Image{}, fmt.Errorf("%w: %s", ErrNoImage, msg)
	default:
		return imagedata.Image{}, ErrNoImage
	}
}

func parseSuggestions(text string) (*models.VideoSuggestions, error) {
	if text == "" {
		return nil, fmt.Errorf("empty suggestions response")
	}
	var suggestions models.VideoSuggestions
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions JSON: %w", err)
	}
	return &suggestions, nil
}

func usageFromGemini(resp *genai.GenerateContentResponse) TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return TokenUsage{}
	}
	return TokenUsage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
	}
}

// truncateRunes shortens s to at most limit runes, marking the cut with "..."
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
