package services

import (
	"context"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"gorm.io/gorm"
)

const (
	thumbnailBatchSize    = 50
	DefaultThumbnailLimit = 50
)

// ThumbnailService archives generated variations
type ThumbnailService struct {
	db *gorm.DB
}

func NewThumbnailService(db *gorm.DB) *ThumbnailService {
	return &ThumbnailService{db: db}
}

// SaveThumbnails inserts all variations in one batch
func (s *ThumbnailService) SaveThumbnails(ctx context.Context, userID string, variations []models.ThumbnailVariation) error {
	rows := ThumbnailsFromVariations(userID, variations)
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, thumbnailBatchSize).Error
}

// ListThumbnails returns the most recent thumbnails first
func (s *ThumbnailService) ListThumbnails(ctx context.Context, userID string, limit int) ([]models.Thumbnail, error) {
	if limit < 1 {
		limit = DefaultThumbnailLimit
	}
	var thumbnails []models.Thumbnail
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&thumbnails).Error
	return thumbnails, err
}

// ThumbnailsFromVariations maps variations to archive rows
func ThumbnailsFromVariations(userID string, variations []models.ThumbnailVariation) []models.Thumbnail {
	rows := make([]models.Thumbnail, 0, len(variations))
	for _, v := range variations {
		rows = append(rows, models.Thumbnail{
			UserID: userID,
			URL:    v.ImageData,
			Prompt: v.SourcePrompt,
			Style:  v.Style,
			Title:  v.Title,
		})
	}
	return rows
}
