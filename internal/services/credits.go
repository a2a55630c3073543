package services

import (
	"context"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"gorm.io/gorm"
)

type CreditsService struct {
	db *gorm.DB
}

func NewCreditsService(db *gorm.DB) *CreditsService {
	return &CreditsService{db: db}
}

// Balance returns the current credit balance of a profile
func (s *CreditsService) Balance(ctx context.Context, userID string) (models.CreditBalance, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Select("credits", "role").First(&profile, "id = ?", userID).Error; err != nil {
		return models.CreditBalance{}, err
	}
	return balanceOf(&profile), nil
}

func balanceOf(profile *models.Profile) models.CreditBalance {
	return models.CreditBalance{
		Credits:   profile.Credits,
		Unlimited: models.HasUnlimitedCredits(profile.Role),
	}
}

// Deduct charges one generation cycle and returns the new balance.
// The balance never goes below zero. Roles with unlimited credits are not charged.
func (s *CreditsService) Deduct(ctx context.Context, userID string) (int, error) {
	var remaining int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the row to prevent race conditions
		profile, err := lockProfile(tx, userID)
		if err != nil {
			return err
		}

		if models.HasUnlimitedCredits(profile.Role) {
			remaining = profile.Credits
			return nil
		}

		remaining = max(0, profile.Credits-models.CreditsPerCycle)
		return tx.Model(&models.Profile{}).Where("id = ?", userID).Update("credits", remaining).Error
	})
	return remaining, err
}

// AddCredits adds credits to a balance (admin top-up) and returns the new balance
func (s *CreditsService) AddCredits(ctx context.Context, userID string, credits int) (int, error) {
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := lockProfile(tx, userID)
		if err != nil {
			return err
		}

		balance = max(0, profile.Credits+credits)
		return tx.Model(&models.Profile{}).Where("id = ?", userID).Update("credits", balance).Error
	})
	return balance, err
}

func lockProfile(tx *gorm.DB, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := tx.Raw("SELECT * FROM profiles WHERE id = ? FOR UPDATE", userID).
		Scan(&profile).Error; err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}
