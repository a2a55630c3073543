package middleware

import (
	"github.com/Conceptual-Machines/thumbforge-api/internal/config"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
)

// GuestAuth is used when AUTH_MODE=none. Every request acts as the guest profile.
func GuestAuth(profiles services.ProfileStore) gin.HandlerFunc {
	guest := models.NewGuestProfile()
	identity := models.Identity{
		ID:    guest.ID,
		Email: guest.Email,
		Role:  guest.Role,
		Metadata: map[string]any{
			"user_name": guest.Username,
			"full_name": guest.FullName,
		},
	}

	return func(c *gin.Context) {
		if !attachProfile(c, profiles, identity) {
			return
		}
		c.Next()
	}
}

// ForMode selects the auth middleware for the configured AUTH_MODE
func ForMode(cfg *config.Config, profiles services.ProfileStore) gin.HandlerFunc {
	switch {
	case cfg.IsJWTMode():
		return JWTAuth(profiles, cfg)
	case cfg.IsGatewayMode():
		return GatewayAuth(profiles)
	default:
		return GuestAuth(profiles)
	}
}
