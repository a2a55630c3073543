package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/thumbforge-api/internal/config"
	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	bearerPrefix = "Bearer"

	ContextUserID   = "user_id"
	ContextProfile  = "profile"
	ContextIdentity = "identity"
)

// Claims are the access-token claims issued by the external identity provider
type Claims struct {
	Email        string         `json:"email"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the caller identity
func (c *Claims) Identity() models.Identity {
	role := models.RoleUser
	if r, ok := c.AppMetadata["role"].(string); ok && r != "" {
		role = r
	}
	return models.Identity{
		ID:       c.Subject,
		Email:    c.Email,
		Role:     role,
		Metadata: c.UserMetadata,
	}
}

// JWTAuth verifies HMAC-signed access tokens and attaches the caller's profile
func JWTAuth(profiles services.ProfileStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString, cfg.JWTSecret, cfg.JWTAudience)
		if err != nil {
			logger.Debug("Rejected access token", logger.Fields{"error": err.Error()})
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		if !attachProfile(c, profiles, claims.Identity()) {
			return
		}
		c.Next()
	}
}

// ParseToken validates signature, expiry and (when set) audience
func ParseToken(tokenString, secret, audience string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not configured")
	}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func tokenFromRequest(c *gin.Context) string {
	// Try to get token from Authorization header first
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == bearerPrefix {
			return parts[1]
		}
	}

	// If no header, try cookie (for web users)
	tokenString, _ := c.Cookie("access_token")
	return tokenString
}

// attachProfile resolves the profile for identity and stores both on the context.
// It aborts with 500 and returns false when the profile store fails.
func attachProfile(c *gin.Context, profiles services.ProfileStore, identity models.Identity) bool {
	profile, err := profiles.GetOrCreateProfile(c.Request.Context(), identity)
	if err != nil {
		logger.Error("Failed to load profile", err, logger.Fields{"user_id": identity.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		c.Abort()
		return false
	}

	c.Set(ContextIdentity, identity)
	c.Set(ContextProfile, profile)
	c.Set(ContextUserID, profile.ID)
	return true
}

// GetCurrentProfile retrieves the profile from context
func GetCurrentProfile(c *gin.Context) (*models.Profile, bool) {
	val, exists := c.Get(ContextProfile)
	if !exists {
		return nil, false
	}
	profile, ok := val.(*models.Profile)
	return profile, ok
}

// GetCurrentUserID retrieves the user ID from context
func GetCurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}
