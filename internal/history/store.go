package history

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
)

// Backend persists one serialized Log per owner.
// Load returns nil data and no error when the owner has no log yet.
type Backend interface {
	Load(ctx context.Context, owner string) ([]byte, error)
	Save(ctx context.Context, owner string, data []byte) error
	Name() string
}

// Store keeps a capped history log per owner on top of a Backend.
// Storage failures never reach callers: reads degrade to an empty log and
// writes are logged and dropped.
type Store struct {
	backend Backend
	limit   int
	mu      sync.Mutex
}

// NewStore creates a store; limit < 1 uses DefaultCap
func NewStore(backend Backend, limit int) *Store {
	if limit < 1 {
		limit = DefaultCap
	}
	return &Store{backend: backend, limit: limit}
}

// Cap returns the per-owner entry limit
func (s *Store) Cap() int {
	return s.limit
}

// BackendName reports which backend serves the store
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Get returns the owner's log, most recent first
func (s *Store) Get(ctx context.Context, owner string) Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, owner)
}

// Put records a new variation at the head of the owner's log
func (s *Store) Put(ctx context.Context, owner string, entry models.ThumbnailVariation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx, owner, s.load(ctx, owner).Prepend(entry, s.limit))
}

// Evict removes one entry; false when it was not in the log
func (s *Store) Evict(ctx context.Context, owner, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, found := s.load(ctx, owner).Without(id)
	if found {
		s.save(ctx, owner, log)
	}
	return found
}

// Replace stores an edited image for an existing entry
func (s *Store) Replace(ctx context.Context, owner, id, imageData string) (*models.ThumbnailVariation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, updated := s.load(ctx, owner).Replace(id, imageData)
	if updated == nil {
		return nil, false
	}
	s.save(ctx, owner, log)
	return updated, true
}

// Retitle stores the suggested titles of a finished cycle. Entries evicted
// in the meantime are skipped.
func (s *Store) Retitle(ctx context.Context, owner string, titles map[string]string) {
	if len(titles) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log, n := s.load(ctx, owner).Retitle(titles)
	if n > 0 {
		s.save(ctx, owner, log)
	}
}

func (s *Store) load(ctx context.Context, owner string) Log {
	data, err := s.backend.Load(ctx, owner)
	if err != nil {
		logger.Warn("History read failed, using empty log", logger.Fields{
			"owner":   owner,
			"backend": s.backend.Name(),
			"error":   err.Error(),
		})
		return Log{}
	}
	if len(data) == 0 {
		return Log{}
	}

	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		logger.Warn("History entry is corrupt, using empty log", logger.Fields{
			"owner":   owner,
			"backend": s.backend.Name(),
			"error":   err.Error(),
		})
		return Log{}
	}
	return log
}

func (s *Store) save(ctx context.Context, owner string, log Log) {
	data, err := json.Marshal(log)
	if err == nil {
		err = s.backend.Save(ctx, owner, data)
	}
	if err != nil {
		logger.Warn("History write failed", logger.Fields{
			"owner":   owner,
			"backend": s.backend.Name(),
			"entries": len(log),
			"error":   err.Error(),
		})
	}
}
