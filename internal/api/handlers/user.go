package handlers

import (
	"net/http"
	"strconv"

	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/middleware"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	store services.Store
}

func NewUserHandler(store services.Store) *UserHandler {
	return &UserHandler{store: store}
}

// GetProfile returns the current user's profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, exists := middleware.GetCurrentProfile(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":           profile,
		"credits":           profile.Credits,
		"unlimited_credits": models.HasUnlimitedCredits(profile.Role),
	})
}

// GetCredits returns the current user's credit balance
func (h *UserHandler) GetCredits(c *gin.Context) {
	profile, exists := middleware.GetCurrentProfile(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.store.Balance(c.Request.Context(), profile.ID)
	if err != nil {
		logger.Error("Failed to get credits", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits":   balance.Credits,
		"unlimited": balance.Unlimited,
		"low":       !balance.Unlimited && balance.Credits < lowCreditThreshold,
	})
}

// CheckUsername reports whether a username is already in use (case-insensitive)
func (h *UserHandler) CheckUsername(c *gin.Context) {
	username := c.Param("username")
	c.JSON(http.StatusOK, gin.H{
		"username": username,
		"taken":    h.store.IsUsernameTaken(c.Request.Context(), username),
	})
}

type ThumbnailHandler struct {
	store services.ThumbnailStore
}

func NewThumbnailHandler(store services.ThumbnailStore) *ThumbnailHandler {
	return &ThumbnailHandler{store: store}
}

// ListThumbnails returns the caller's saved thumbnails, newest first
func (h *ThumbnailHandler) ListThumbnails(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit := services.DefaultThumbnailLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(parsed, maxThumbnailPageSize)
	}

	thumbnails, err := h.store.ListThumbnails(c.Request.Context(), userID, limit)
	if err != nil {
		logger.Error("Failed to list thumbnails", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch thumbnails"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"thumbnails": thumbnails})
}
