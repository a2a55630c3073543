package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/thumbforge-api/internal/assets"
	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/gin-gonic/gin"
)

const uploadField = "files"

type AssetHandler struct{}

func NewAssetHandler() *AssetHandler {
	return &AssetHandler{}
}

// Upload reads multipart images and returns at most assets.MaxAssets of them as data URIs
func (h *AssetHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form data"})
		return
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	collector := assets.NewCollector()
	skipped, err := assets.ReadFiles(c.Request.Context(), collector, files)
	if err != nil {
		logger.Error("Failed to read uploads", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploads"})
		return
	}

	if collector.Dropped() > 0 {
		fields := logger.WithContext(c)
		fields["dropped"] = collector.Dropped()
		logger.Info("Reference images over the limit were dropped", fields)
	}

	c.JSON(http.StatusOK, gin.H{
		"assets":  collector.DataURIs(),
		"dropped": collector.Dropped(),
		"skipped": skipped,
	})
}
