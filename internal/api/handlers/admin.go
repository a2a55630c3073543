package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	credits services.CreditStore
}

func NewAdminHandler(credits services.CreditStore) *AdminHandler {
	return &AdminHandler{credits: credits}
}

// UpdateUserCredits tops up (or with a negative amount, reduces) a balance
func (h *AdminHandler) UpdateUserCredits(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		Credits int `json:"credits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.credits.AddCredits(c.Request.Context(), userID, req.Credits)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		logger.Error("Failed to update credits", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update credits"})
		return
	}

	logger.Info("Credits updated by admin", logger.Fields{
		"target_user_id": userID,
		"delta":          req.Credits,
		"balance":        balance,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Credits updated successfully", "credits": balance})
}
