package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/thumbforge-api/internal/database"
	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

type HealthHandler struct {
	db      *gorm.DB
	history *history.Store
}

// NewHealthHandler creates a health handler. db is nil in guest mode.
func NewHealthHandler(db *gorm.DB, historyStore *history.Store) *HealthHandler {
	return &HealthHandler{db: db, history: historyStore}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := statusHealthy
	dbStatus := statusDisabled

	if h.db != nil {
		dbStatus = statusHealthy
		if err := database.Ping(h.db); err != nil {
			dbStatus = statusUnhealthy
			status = statusDegraded
		}
	}

	historyBackend := statusDisabled
	if h.history != nil {
		historyBackend = h.history.BackendName()
	}

	code := http.StatusOK
	if status != statusHealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": gin.H{"status": dbStatus},
		"history": gin.H{
			"backend": historyBackend,
		},
	})
}
