package services

import (
	"context"
	"sync"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"gorm.io/gorm"
)

// GuestStore is an in-memory Store used when no database is configured.
// It starts with the guest profile; data is lost on restart.
type GuestStore struct {
	mu         sync.Mutex
	profiles   map[string]*models.Profile
	thumbnails map[string][]models.Thumbnail
	nextID     uint
}

func NewGuestStore() *GuestStore {
	guest := models.NewGuestProfile()
	return &GuestStore{
		profiles:   map[string]*models.Profile{guest.ID: &guest},
		thumbnails: make(map[string][]models.Thumbnail),
	}
}

func (s *GuestStore) GetOrCreateProfile(_ context.Context, identity models.Identity) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[identity.ID]; ok {
		out := *p
		return &out, nil
	}
	p := NewProfileFor(identity)
	s.profiles[p.ID] = &p
	out := p
	return &out, nil
}

func (s *GuestStore) IsUsernameTaken(_ context.Context, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := NormalizeUsername(username)
	for _, p := range s.profiles {
		if NormalizeUsername(p.Username) == normalized {
			return true
		}
	}
	return false
}

func (s *GuestStore) Balance(_ context.Context, userID string) (models.CreditBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return models.CreditBalance{}, gorm.ErrRecordNotFound
	}
	return balanceOf(p), nil
}

func (s *GuestStore) Deduct(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	if !models.HasUnlimitedCredits(p.Role) {
		p.Credits = max(0, p.Credits-models.CreditsPerCycle)
	}
	return p.Credits, nil
}

func (s *GuestStore) AddCredits(_ context.Context, userID string, credits int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	p.Credits = max(0, p.Credits+credits)
	return p.Credits, nil
}

func (s *GuestStore) SaveThumbnails(_ context.Context, userID string, variations []models.ThumbnailVariation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range ThumbnailsFromVariations(userID, variations) {
		s.nextID++
		row.ID = s.nextID
		row.CreatedAt = time.Now().UTC()
		s.thumbnails[userID] = append(s.thumbnails[userID], row)
	}
	return nil
}

func (s *GuestStore) ListThumbnails(_ context.Context, userID string, limit int) ([]models.Thumbnail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = DefaultThumbnailLimit
	}
	rows := s.thumbnails[userID]
	out := make([]models.Thumbnail, 0, min(limit, len(rows)))
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

var (
	_ Store = (*GuestStore)(nil)
	_ Store = (*DBStore)(nil)
)
