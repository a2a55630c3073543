package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/gin-gonic/gin"
)

type StyleHandler struct{}

func NewStyleHandler() *StyleHandler {
	return &StyleHandler{}
}

// ListStyles returns the visual style catalog and the preselected style
func (h *StyleHandler) ListStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"styles":  models.Styles(),
		"default": models.DefaultStyle,
	})
}

// ApplyTemplate returns the concept and style a template seeds the generator with
func (h *StyleHandler) ApplyTemplate(c *gin.Context) {
	var template models.Template
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template": template,
		"concept":  template.Concept(),
		"style":    template.Style(),
	})
}
