package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/Conceptual-Machines/thumbforge-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	store *history.Store
}

func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// GetHistory returns the caller's history, newest first
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": h.store.Get(c.Request.Context(), userID),
		"cap":     h.store.Cap(),
	})
}

// DeleteEntry removes one entry from the caller's history
func (h *HistoryHandler) DeleteEntry(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if !h.store.Evict(c.Request.Context(), userID, c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "History entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "History entry deleted"})
}
