package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/assets"
	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/llm"
	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/observability"
	"github.com/Conceptual-Machines/thumbforge-api/internal/prompt"
	"github.com/google/uuid"
)

// DefaultPacingDelay is the gap between successive variation calls
const DefaultPacingDelay = time.Second

// HistoryRecorder receives every completed variation, then the titles
// suggested for them once the cycle has its suggestions
type HistoryRecorder interface {
	Put(ctx context.Context, owner string, entry models.ThumbnailVariation)
	Retitle(ctx context.Context, owner string, titles map[string]string)
}

// CreditLedger is read once before a cycle and charged once after it
type CreditLedger interface {
	Balance(ctx context.Context, ownerID string) (models.CreditBalance, error)
	Deduct(ctx context.Context, ownerID string) (int, error)
}

// ThumbnailArchive stores completed variations with their titles
type ThumbnailArchive interface {
	SaveThumbnails(ctx context.Context, ownerID string, variations []models.ThumbnailVariation) error
}

// Options configures an Orchestrator. Credits and Archive are optional.
type Options struct {
	PacingDelay time.Duration
	Credits     CreditLedger
	Archive     ThumbnailArchive
}

// Request is one generation cycle
type Request struct {
	OwnerID         string
	Concept         string
	Style           string
	ReferenceImages []imagedata.Image
}

// FromTemplate seeds a request with a template's concept and style
func FromTemplate(ownerID string, t models.Template) Request {
	return Request{
		OwnerID: ownerID,
		Concept: t.Concept(),
		Style:   t.Style(),
	}
}

// Result is the outcome of a cycle that produced at least the first variation
type Result struct {
	CycleID             string                      `json:"cycle_id"`
	Variations          []models.ThumbnailVariation `json:"variations"`
	Failures            []VariationFailure          `json:"failures"`
	Suggestions         models.VideoSuggestions     `json:"suggestions"`
	SuggestionsFallback bool                        `json:"suggestions_fallback"`
	RemainingCredits    *int                        `json:"remaining_credits,omitempty"`
	DurationMS          int64                       `json:"duration_ms"`
}

// Orchestrator runs generation cycles against a generative client
type Orchestrator struct {
	client  llm.GenerativeClient
	history HistoryRecorder
	prompts *prompt.Builder
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator; a nil builder uses the embedded prompts
func New(client llm.GenerativeClient, history HistoryRecorder, builder *prompt.Builder, opts Options) *Orchestrator {
	if builder == nil {
		builder = prompt.MustNewPromptBuilder()
	}
	if opts.PacingDelay < 0 {
		opts.PacingDelay = 0
	}
	return &Orchestrator{
		client:  client,
		history: history,
		prompts: builder,
		opts:    opts,
		sleep:   sleepContext,
	}
}

// GenerateSet produces the variations of one cycle in order. onVariation
// (optional) is called as soon as each variation completes.
func (o *Orchestrator) GenerateSet(
	ctx context.Context, req Request, onVariation func(models.ThumbnailVariation),
) (*Result, error) {
	startTime := time.Now()
	req.Concept = strings.TrimSpace(req.Concept)
	req.Style = models.StyleOrDefault(req.Style)
	if req.Concept == "" {
		return nil, ErrEmptyConcept
	}
	if len(req.ReferenceImages) > assets.MaxAssets {
		req.ReferenceImages = req.ReferenceImages[:assets.MaxAssets]
	}

	result := &Result{CycleID: uuid.New().String()}
	fields := logger.Fields{
		"cycle_id":     result.CycleID,
		"user_id":      req.OwnerID,
		"provider":     o.client.Name(),
		"style":        req.Style,
		"custom_style": !models.IsCatalogStyle(req.Style),
		"references":   llm.ReferenceMIMETypes(req.ReferenceImages),
	}

	if err := o.checkCredits(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	trace := observability.GetClient().StartTrace(ctx, "thumbnail.generate_set", map[string]interface{}{
		"cycle_id": result.CycleID,
		"user_id":  req.OwnerID,
		"style":    req.Style,
	})
	defer trace.Finish()
	ctx = observability.ContextWithTrace(ctx, trace)

	logger.Info("Generation cycle started", fields)

	var images []imagedata.Image
	for i := 0; i < models.VariationsPerCycle; i++ {
		if i > 0 {
			if err := o.sleep(ctx, o.opts.PacingDelay); err != nil {
				return nil, fmt.Errorf("generation cancelled: %w", err)
			}
		}

		attempt := o.attempt(ctx, req, result.CycleID, i)
		switch decide(attempt) {
		case abort:
			logger.Error("First variation failed, aborting cycle", attempt.Err, fields)
			return nil, &GenerationFailedError{Cause: attempt.Err}

		case record:
			failure := VariationFailure{Index: i, Reason: attempt.Err.Error()}
			logger.Warn("Variation failed, continuing", logger.Fields{
				"cycle_id":        result.CycleID,
				"variation_index": i,
				"error":           failure.Error(),
			})
			result.Failures = append(result.Failures, failure)

		case accept:
			result.Variations = append(result.Variations, attempt.Variation)
			images = append(images, attempt.Image)
			if onVariation != nil {
				onVariation(attempt.Variation)
			}
			if o.history != nil {
				o.history.Put(ctx, req.OwnerID, attempt.Variation)
			}
		}
	}

	result.Suggestions, result.SuggestionsFallback = o.suggest(ctx, req, images)
	titles := make(map[string]string, len(result.Variations))
	for k := range result.Variations {
		result.Variations[k].Title = result.Suggestions.TitleFor(result.Variations[k].VariationIndex)
		titles[result.Variations[k].ID] = result.Variations[k].Title
	}
	if o.history != nil {
		o.history.Retitle(ctx, req.OwnerID, titles)
	}

	result.RemainingCredits = o.chargeCycle(ctx, req.OwnerID)
	o.archive(ctx, req.OwnerID, result.Variations)

	duration := time.Since(startTime)
	result.DurationMS = duration.Milliseconds()
	logger.LogGenerationCycle(ctx, duration, len(result.Variations), len(result.Failures), fields)

	return result, nil
}

// attempt issues the image call for one index
func (o *Orchestrator) attempt(ctx context.Context, req Request, cycleID string, index int) Attempt {
	a := Attempt{Index: index}

	text, err := o.prompts.BuildImagePrompt(req.Concept, req.Style, index)
	if err != nil {
		a.Err = err
		return a
	}

	resp, err := o.client.GenerateImage(ctx, &llm.ImageRequest{
		Prompt:          text,
		ReferenceImages: req.ReferenceImages,
		AspectRatio:     llm.AspectRatio16x9,
	})
	if err != nil {
		a.Err = err
		return a
	}

	a.Image = resp.Image
	a.Variation = models.ThumbnailVariation{
		ID:             uuid.New().String(),
		CycleID:        cycleID,
		VariationIndex: index,
		ImageData:      resp.Image.DataURI(),
		SourcePrompt:   req.Concept,
		Style:          req.Style,
		CreatedAt:      time.Now().UTC(),
		Status:         models.VariationCompleted,
	}
	return a
}

// suggest asks for one title per slot; missing or failed slots get placeholders
func (o *Orchestrator) suggest(ctx context.Context, req Request, images []imagedata.Image) (models.VideoSuggestions, bool) {
	fallback := models.PlaceholderSuggestions()
	if len(images) == 0 {
		return fallback, true
	}

	text, err := o.prompts.BuildSuggestionsPrompt(req.Concept, req.Style, models.VariationsPerCycle, len(images))
	var got *models.VideoSuggestions
	if err == nil {
		got, err = o.client.GenerateSuggestions(ctx, &llm.SuggestionRequest{
			Prompt:     text,
			Images:     images,
			TitleCount: models.VariationsPerCycle,
		})
	}
	if err != nil {
		logger.Warn("Suggestions unavailable, using placeholders", logger.Fields{
			"user_id": req.OwnerID,
			"error":   fmt.Errorf("%w: %v", ErrSuggestionGenerationFailed, err).Error(),
		})
		return fallback, true
	}

	out := models.VideoSuggestions{
		Titles:      make([]string, models.VariationsPerCycle),
		Description: strings.TrimSpace(got.Description),
	}
	padded := len(got.Titles) != models.VariationsPerCycle
	for i := range out.Titles {
		out.Titles[i] = strings.TrimSpace(got.TitleFor(i))
		if out.Titles[i] == "" {
			out.Titles[i] = fallback.Titles[i]
			padded = true
		}
	}
	if out.Description == "" {
		out.Description = fallback.Description
		padded = true
	}
	if padded {
		logger.Warn("Suggestions incomplete, padded with placeholders", logger.Fields{
			"user_id": req.OwnerID,
			"titles":  len(got.Titles),
		})
	}
	return out, padded
}

// EnhancePrompt rewrites text into a richer prompt. It never fails: on any
// error or an empty answer the original text is returned.
func (o *Orchestrator) EnhancePrompt(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	request, err := o.prompts.BuildEnhancePrompt(text)
	if err != nil {
		logger.Warn("Prompt enhancement skipped", logger.Fields{"error": err.Error()})
		return text
	}

	enhanced, err := o.client.EnhancePrompt(ctx, &llm.EnhanceRequest{Prompt: request})
	if err != nil {
		logger.Warn("Prompt enhancement failed, keeping original", logger.Fields{
			"provider": o.client.Name(),
			"error":    err.Error(),
		})
		return text
	}
	if enhanced = strings.TrimSpace(enhanced); enhanced == "" {
		return text
	}
	return enhanced
}

func (o *Orchestrator) checkCredits(ctx context.Context, ownerID string) error {
	if o.opts.Credits == nil {
		return nil
	}
	balance, err := o.opts.Credits.Balance(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to read credits: %w", err)
	}
	if !balance.CanAfford() {
		return ErrInsufficientCredits
	}
	return nil
}

// chargeCycle deducts once per completed cycle; failures are logged only
func (o *Orchestrator) chargeCycle(ctx context.Context, ownerID string) *int {
	if o.opts.Credits == nil {
		return nil
	}
	remaining, err := o.opts.Credits.Deduct(ctx, ownerID)
	if err != nil {
		logger.Error("Failed to deduct credits", err, logger.Fields{"user_id": ownerID})
		return nil
	}
	return &remaining
}

func (o *Orchestrator) archive(ctx context.Context, ownerID string, variations []models.ThumbnailVariation) {
	if o.opts.Archive == nil || len(variations) == 0 {
		return
	}
	if err := o.opts.Archive.SaveThumbnails(ctx, ownerID, variations); err != nil {
		logger.Error("Failed to archive thumbnails", err, logger.Fields{
			"user_id": ownerID,
			"count":   len(variations),
		})
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsFatal reports whether err must be surfaced to the caller as a failed cycle
func IsFatal(err error) bool {
	var failed *GenerationFailedError
	return errors.As(err, &failed)
}
