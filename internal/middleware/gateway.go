package middleware

import (
	"net/http"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email,
// X-User-Role, X-User-Name). The upstream gateway has already verified the caller.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used with proper network isolation.
func GatewayAuth(profiles services.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		identity := models.Identity{
			ID:       userID,
			Email:    c.GetHeader("X-User-Email"),
			Role:     c.GetHeader("X-User-Role"),
			Metadata: map[string]any{},
		}
		if name := c.GetHeader("X-User-Name"); name != "" {
			identity.Metadata["user_name"] = name
		}

		if !attachProfile(c, profiles, identity) {
			return
		}
		c.Next()
	}
}
