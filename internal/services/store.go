package services

import (
	"context"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"gorm.io/gorm"
)

// ProfileStore resolves profiles for authenticated identities
type ProfileStore interface {
	GetOrCreateProfile(ctx context.Context, identity models.Identity) (*models.Profile, error)
	IsUsernameTaken(ctx context.Context, username string) bool
}

// CreditStore reads and changes credit balances
type CreditStore interface {
	Balance(ctx context.Context, userID string) (models.CreditBalance, error)
	Deduct(ctx context.Context, userID string) (int, error)
	AddCredits(ctx context.Context, userID string, credits int) (int, error)
}

// ThumbnailStore archives generated thumbnails
type ThumbnailStore interface {
	SaveThumbnails(ctx context.Context, userID string, variations []models.ThumbnailVariation) error
	ListThumbnails(ctx context.Context, userID string, limit int) ([]models.Thumbnail, error)
}

// Store is everything the API needs from persistence
type Store interface {
	ProfileStore
	CreditStore
	ThumbnailStore
}

// DBStore is the Postgres-backed Store
type DBStore struct {
	*ProfileService
	*CreditsService
	*ThumbnailService
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{
		ProfileService:   NewProfileService(db),
		CreditsService:   NewCreditsService(db),
		ThumbnailService: NewThumbnailService(db),
	}
}
