package models

import (
	"fmt"
	"time"
)

const (
	PlanFree = "free"

	avatarURLTemplate = "https://api.dicebear.com/7.x/avataaars/svg?seed=%s"
)

// Profile is the per-user record keyed by the identity provider's user id.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"index" json:"email"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	Credits   int       `gorm:"default:50;not null" json:"credits"`
	Plan      string    `gorm:"default:'free'" json:"plan"`
	Role      string    `gorm:"default:'user';index" json:"role"` // "admin", "beta", "user"
}

// Thumbnail is an archived generated image.
type Thumbnail struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	Style     string    `json:"style"`
	Title     string    `json:"title"`
}

// AvatarURLFor returns the generated avatar for a username.
func AvatarURLFor(username string) string {
	return fmt.Sprintf(avatarURLTemplate, username)
}

// Identity is the already-resolved caller handed over by the auth layer.
type Identity struct {
	ID       string
	Email    string
	Role     string
	Metadata map[string]any
}

// MetadataString returns the first non-empty string value among keys.
func (i Identity) MetadataString(keys ...string) string {
	for _, k := range keys {
		if v, ok := i.Metadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Guest profile used when no profile database is configured.
const (
	GuestUserID   = "guest"
	GuestEmail    = "guest@example.com"
	GuestUsername = "guest_creator"
	GuestFullName = "Creator Guest"
)

// NewGuestProfile returns the fallback profile for guest mode.
func NewGuestProfile() Profile {
	return Profile{
		ID:        GuestUserID,
		Email:     GuestEmail,
		Username:  GuestUsername,
		FullName:  GuestFullName,
		AvatarURL: AvatarURLFor(GuestUsername),
		Credits:   UserInitialCredits,
		Plan:      PlanFree,
		Role:      RoleUser,
	}
}
