package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFullName     = "Creator"
	randomUsernameRange = 10000
	maxCreateAttempts   = 3
)

// ProfileService manages profiles keyed by the identity provider's user id
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile loads a profile by id
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreateProfile returns the caller's profile, creating it on first sight.
// Concurrent first requests are safe: the insert ignores conflicts and the
// row is read back afterwards.
func (s *ProfileService) GetOrCreateProfile(ctx context.Context, identity models.Identity) (*models.Profile, error) {
	if identity.ID == "" {
		return nil, errors.New("identity has no user id")
	}

	profile, err := s.GetProfile(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	candidate := NewProfileFor(identity)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if attempt > 0 {
			// The username collided with another profile.
			candidate.Username = randomUsername()
			candidate.AvatarURL = models.AvatarURLFor(candidate.Username)
		}

		result := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&candidate)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to create profile: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			logger.Info("Profile created", logger.Fields{"user_id": identity.ID, "username": candidate.Username})
		}

		profile, err := s.GetProfile(ctx, identity.ID)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to create profile for %s: username conflicts", identity.ID)
}

// IsUsernameTaken reports whether another profile uses username, ignoring
// case. Lookup errors report false.
func (s *ProfileService) IsUsernameTaken(ctx context.Context, username string) bool {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return false
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("LOWER(username) = ?", normalized).
		Count(&count).Error; err != nil {
		logger.Warn("Username lookup failed", logger.Fields{"username": normalized, "error": err.Error()})
		return false
	}
	return count > 0
}

// NormalizeUsername trims and case-folds a username for comparisons
func NormalizeUsername(username string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(username))
}

// NewProfileFor builds the initial profile for a first-time identity
func NewProfileFor(identity models.Identity) models.Profile {
	username := identity.MetadataString("user_name", "preferred_username")
	if username == "" {
		username = randomUsername()
	}
	fullName := identity.MetadataString("full_name", "name")
	if fullName == "" {
		fullName = defaultFullName
	}
	role := identity.Role
	if role == "" {
		role = models.RoleUser
	}

	return models.Profile{
		ID:        identity.ID,
		Email:     identity.Email,
		Username:  username,
		FullName:  fullName,
		AvatarURL: models.AvatarURLFor(username),
		Credits:   models.GetInitialCreditsForRole(role),
		Plan:      models.PlanFree,
		Role:      role,
	}
}

func randomUsername() string {
	return fmt.Sprintf("user_%d", rand.IntN(randomUsernameRange))
}
