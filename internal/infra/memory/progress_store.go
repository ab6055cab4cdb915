package memory

import (
	"context"
	"sync"

	"exam-progress-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
// Snapshots are cloned on the way in and out so callers never share maps.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[string]domain.Progress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		progress: make(map[string]domain.Progress),
	}
}

func (s *ProgressStore) Load(_ context.Context, userID string) (domain.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[userID]
	if !ok {
		return domain.Progress{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *ProgressStore) Save(_ context.Context, userID string, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[userID] = p.Clone()
	return nil
}

func (s *ProgressStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, userID)
	return nil
}
