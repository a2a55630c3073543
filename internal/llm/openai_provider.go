package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/observability"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	providerNameOpenAI = "openai"

	defaultOpenAITextModel = openai.ChatModelGPT4oMini
)

// OpenAIProvider implements TextProvider using OpenAI chat completions
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAITextModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client: &client,
		model:  model,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// GenerateSuggestions asks for titles + description with a strict JSON schema
func (p *OpenAIProvider) GenerateSuggestions(ctx context.Context, request *SuggestionRequest) (*models.VideoSuggestions, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "openai.generate_suggestions")
	defer transaction.Finish()
	transaction.SetTag("model", p.model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{buildSuggestionMessage(request)},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   suggestionsSchemaName,
					Schema: GetSuggestionsOutputSchema(),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	gen := observability.TraceFromContext(ctx).Generation("openai.generate_suggestions", map[string]interface{}{
		"model":  p.model,
		"images": len(request.Images),
	})
	gen.Input(request.Prompt)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Printf("❌ OPENAI SUGGESTIONS FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		gen.Fail(err)
		return nil, fmt.Errorf("openai suggestions request failed: %w", err)
	}

	suggestions, err := parseSuggestions(firstChoiceContent(resp))
	if err != nil {
		transaction.SetTag("success", "false")
		gen.Fail(err)
		return nil, err
	}

	gen.Output(suggestions)
	gen.Usage(p.model, int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	gen.Finish()

	transaction.SetTag("success", "true")
	return suggestions, nil
}

// EnhancePrompt rewrites a short idea into a descriptive image prompt
func (p *OpenAIProvider) EnhancePrompt(ctx context.Context, request *EnhanceRequest) (string, error) {
	gen := observability.TraceFromContext(ctx).Generation("openai.enhance_prompt", map[string]interface{}{
		"model": p.model,
	})
	gen.Input(request.Prompt)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(request.Prompt)},
	})
	if err != nil {
		gen.Fail(err)
		return "", fmt.Errorf("openai enhance request failed: %w", err)
	}

	text := strings.TrimSpace(firstChoiceContent(resp))
	gen.Output(text)
	gen.Usage(p.model, int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	gen.Finish()

	return text, nil
}

// buildSuggestionMessage sends the prompt plus every image as a data URL part
func buildSuggestionMessage(request *SuggestionRequest) openai.ChatCompletionMessageParamUnion {
	if len(request.Images) == 0 {
		return openai.UserMessage(request.Prompt)
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(request.Images)+1)
	parts = append(parts, openai.TextContentPart(request.Prompt))
	for _, img := range request.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURI(),
		}))
	}
	return openai.UserMessage(parts)
}

func firstChoiceContent(resp *openai.ChatCompletion) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
