package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/generator"
	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/metrics"
	"github.com/Conceptual-Machines/thumbforge-api/internal/middleware"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/gin-gonic/gin"
)

var sentryMetrics = metrics.NewSentryMetrics()

// Generator runs generation cycles and prompt rewrites
type Generator interface {
	GenerateSet(ctx context.Context, req generator.Request, onVariation func(models.ThumbnailVariation)) (*generator.Result, error)
	EnhancePrompt(ctx context.Context, text string) string
}

type GenerationHandler struct {
	generator  Generator
	cloudwatch *metrics.Client
}

func NewGenerationHandler(gen Generator, cloudwatch *metrics.Client) *GenerationHandler {
	return &GenerationHandler{
		generator:  gen,
		cloudwatch: cloudwatch,
	}
}

type GenerateRequest struct {
	Concept         string           `json:"concept"`
	Style           string           `json:"style"`
	Template        *models.Template `json:"template"`         // fills a blank concept or style
	ReferenceImages []string         `json:"reference_images"` // data URIs, at most 3 are used
	Stream          bool             `json:"stream"`           // Enable SSE streaming
}

// GenerateResponse is the one-shot response body
type GenerateResponse struct {
	RequestID string `json:"request_id"`
	*generator.Result
}

// StreamEvent is one SSE payload
type StreamEvent struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	refs, err := imagedata.ParseAll(req.ReferenceImages)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid reference image: %v", err)})
		return
	}

	genReq := generator.Request{
		OwnerID: userID,
		Concept: req.Concept,
		Style:   req.Style,
	}
	if req.Template != nil {
		seeded := generator.FromTemplate(userID, *req.Template)
		if strings.TrimSpace(genReq.Concept) == "" {
			genReq.Concept = seeded.Concept
		}
		if strings.TrimSpace(genReq.Style) == "" {
			genReq.Style = seeded.Style
		}
	}
	genReq.ReferenceImages = refs

	if profile, ok := middleware.GetCurrentProfile(c); ok &&
		!models.HasUnlimitedCredits(profile.Role) && profile.Credits < lowCreditThreshold {
		c.Header("X-Credits-Low", "true")
		c.Header("X-Credits-Balance", fmt.Sprintf("%d", profile.Credits))
	}

	// Route based on streaming preference
	if req.Stream {
		h.generateStream(c, genReq)
		return
	}

	h.generateOneShot(c, genReq)
}

// generateOneShot runs the whole cycle and answers with one JSON body
func (h *GenerationHandler) generateOneShot(c *gin.Context, req generator.Request) {
	startTime := time.Now()

	result, err := h.generator.GenerateSet(c.Request.Context(), req, nil)
	h.record(c, result, err, time.Since(startTime))
	if err != nil {
		status, message := generationErrorStatus(err)
		c.JSON(status, gin.H{
			"error":      message,
			"request_id": c.GetString("request_id"),
		})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		RequestID: c.GetString("request_id"),
		Result:    result,
	})
}

// generateStream sends each variation as it completes, then suggestions and the result
func (h *GenerationHandler) generateStream(c *gin.Context, req generator.Request) {
	startTime := time.Now()

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Header("X-Request-ID", c.GetString("request_id"))
	c.Status(http.StatusOK)
	c.Writer.Flush()

	send := func(event StreamEvent) {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			logger.Error("Failed to encode stream event", err, logger.WithContext(c))
			return
		}
		_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", eventJSON)
		c.Writer.Flush()
	}

	result, err := h.generator.GenerateSet(c.Request.Context(), req, func(v models.ThumbnailVariation) {
		send(StreamEvent{
			Type:    eventVariation,
			Message: fmt.Sprintf("Variation %d ready", v.VariationIndex+1),
			Data:    v,
		})
	})
	h.record(c, result, err, time.Since(startTime))

	if err != nil {
		status, message := generationErrorStatus(err)
		send(StreamEvent{
			Type:    eventError,
			Message: message,
			Data:    gin.H{"status": status},
		})
	} else {
		for _, failure := range result.Failures {
			send(StreamEvent{
				Type:    eventVariationFailed,
				Message: failure.Error(),
				Data:    failure,
			})
		}
		send(StreamEvent{
			Type: eventSuggestions,
			Data: gin.H{
				"suggestions": result.Suggestions,
				"fallback":    result.SuggestionsFallback,
			},
		})
		send(StreamEvent{
			Type:    eventResult,
			Message: "Generation complete",
			Data:    result,
		})
	}

	send(StreamEvent{
		Type:    eventDone,
		Message: "Stream complete",
		Data: map[string]interface{}{
			"request_id": c.GetString("request_id"),
		},
	})
}

// record reports the cycle outcome to every metrics sink
func (h *GenerationHandler) record(c *gin.Context, result *generator.Result, err error, duration time.Duration) {
	switch {
	case err == nil:
		completed, failed := len(result.Variations), len(result.Failures)
		metrics.GenerationCycle(metrics.OutcomeCompleted, duration)
		metrics.Variations(string(models.VariationCompleted), completed)
		metrics.Variations(string(models.VariationFailed), failed)
		if result.SuggestionsFallback {
			metrics.SuggestionFallback()
			h.cloudwatch.RecordSuggestionFallback()
		}
		h.cloudwatch.RecordGenerationCycle(duration, completed, failed, true)
		sentryMetrics.RecordGenerationCycle(c.Request.Context(), duration, completed, failed, result.SuggestionsFallback)

	case errors.Is(err, generator.ErrInsufficientCredits):
		metrics.GenerationCycle(metrics.OutcomeInsufficientCredits, duration)

	case errors.Is(err, generator.ErrEmptyConcept):
		metrics.GenerationCycle(metrics.OutcomeRejected, duration)

	default:
		metrics.GenerationCycle(metrics.OutcomeFailed, duration)
		if generator.IsFatal(err) {
			metrics.Variations(string(models.VariationFailed), 1)
		}
		h.cloudwatch.RecordGenerationCycle(duration, 0, 1, false)
		logger.Error("Generation cycle failed", err, logger.WithContext(c))
	}
}

// generationErrorStatus maps a cycle error to an HTTP status and message
func generationErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, generator.ErrEmptyConcept):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, generator.ErrInsufficientCredits):
		return http.StatusPaymentRequired, err.Error()
	case generator.IsFatal(err):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "Generation cancelled"
	default:
		return http.StatusInternalServerError, generator.DefaultFailureMessage
	}
}

type EnhanceRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// EnhancePrompt rewrites a short idea. Upstream failures return the original prompt.
func (h *GenerationHandler) EnhancePrompt(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enhanced := h.generator.EnhancePrompt(c.Request.Context(), req.Prompt)
	c.JSON(http.StatusOK, gin.H{
		"prompt":   enhanced,
		"enhanced": enhanced != req.Prompt,
	})
}
