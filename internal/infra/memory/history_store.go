package memory

import (
	"context"
	"sort"
	"sync"

	"exam-progress-service/internal/domain"
	"github.com/google/uuid"
)

// HistoryStore is an in-memory implementation of app.HistoryRepository.
type HistoryStore struct {
	mu      sync.RWMutex
	results []domain.ExamResult
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Insert(_ context.Context, result domain.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *HistoryStore) ListByUser(_ context.Context, userID string) ([]domain.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ExamResult, 0)
	// walk backwards so equal timestamps list the latest insert first
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].UserID == userID {
			out = append(out, s.results[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *HistoryStore) Get(_ context.Context, id uuid.UUID) (domain.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ExamResult{}, domain.ErrNotFound
}

func (s *HistoryStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.results[:0]
	for _, r := range s.results {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	s.results = kept
	return nil
}
