package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/editor"
	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/metrics"
	"github.com/Conceptual-Machines/thumbforge-api/internal/middleware"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/gin-gonic/gin"
)

type EditHandler struct {
	history    *history.Store
	cloudwatch *metrics.Client
}

func NewEditHandler(historyStore *history.Store, cloudwatch *metrics.Client) *EditHandler {
	return &EditHandler{history: historyStore, cloudwatch: cloudwatch}
}

// EditRequest bakes settings into an image. Omitted settings keep their defaults.
type EditRequest struct {
	Image          string          `json:"image"`
	Settings       editor.Settings `json:"settings"`
	VariationIndex int             `json:"variation_index"`
}

// Preview describes how a client should render the settings before committing
func (h *EditHandler) Preview(c *gin.Context) {
	settings := editor.DefaultSettings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings = settings.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"settings":         settings,
		"preview":          editor.PreviewTransform(settings),
		"identity":         settings.IsIdentity(),
		"swaps_dimensions": settings.SwapsDimensions(),
	})
}

// Apply bakes settings into the posted image and returns a JPEG data URI
func (h *EditHandler) Apply(c *gin.Context) {
	req := EditRequest{Settings: editor.DefaultSettings()}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := imagedata.Parse(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid image: %v", err)})
		return
	}

	out, ok := h.commit(c, src, req.Settings)
	if !ok {
		return
	}

	variation := models.ThumbnailVariation{VariationIndex: max(0, req.VariationIndex)}
	c.JSON(http.StatusOK, gin.H{
		"image":    out.DataURI(),
		"filename": variation.DownloadName(),
	})
}

// ApplyToHistory bakes settings into a history entry and replaces its image
func (h *EditHandler) ApplyToHistory(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	settings := editor.DefaultSettings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	entry, found := h.history.Get(c.Request.Context(), userID).Find(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "History entry not found"})
		return
	}

	src, err := imagedata.Parse(entry.ImageData)
	if err != nil {
		logger.Error("Stored history image is unreadable", err, logger.WithContext(c))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Stored image is unreadable"})
		return
	}

	out, ok := h.commit(c, src, settings)
	if !ok {
		return
	}

	updated, replaced := h.history.Replace(c.Request.Context(), userID, id, out.DataURI())
	if !replaced {
		// evicted by a concurrent cycle while we were editing
		c.JSON(http.StatusNotFound, gin.H{"error": "History entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variation": updated,
		"filename":  updated.DownloadName(),
	})
}

// commit runs one editing session and writes the error response on failure
func (h *EditHandler) commit(c *gin.Context, src imagedata.Image, settings editor.Settings) (imagedata.Image, bool) {
	startTime := time.Now()

	session := editor.OpenSession(src)
	session.Apply(settings)
	out, err := session.Commit()

	duration := time.Since(startTime)
	h.cloudwatch.RecordEdit(duration, err == nil)
	sentryMetrics.RecordPerformanceMetric(c.Request.Context(), "editor.commit", duration, map[string]interface{}{
		"success":          err == nil,
		"swaps_dimensions": settings.SwapsDimensions(),
	})

	if err != nil {
		metrics.Edit(metrics.OutcomeFailed)
		if errors.Is(err, editor.ErrEmptySource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return imagedata.Image{}, false
		}
		logger.Warn("Edit commit failed", logger.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		})
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return imagedata.Image{}, false
	}

	metrics.Edit(metrics.OutcomeCompleted)
	return out, true
}
