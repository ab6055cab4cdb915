package app

import (
	"context"
	"errors"
	"time"

	"exam-progress-service/internal/domain"
	"github.com/google/uuid"
)

// HistoryRepository stores exam results. Records are never updated; they are
// only removed all at once when an identity resets its progress.
type HistoryRepository interface {
	Insert(ctx context.Context, result domain.ExamResult) error
	ListByUser(ctx context.Context, userID string) ([]domain.ExamResult, error)
	Get(ctx context.Context, id uuid.UUID) (domain.ExamResult, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// HistoryService records and reads graded attempts for an identity.
type HistoryService struct {
	repo HistoryRepository
	now  func() time.Time
}

func NewHistoryService(repo HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo, now: time.Now}
}

// NewHistoryServiceWithClock is test-only for deterministic timestamps.
func NewHistoryServiceWithClock(repo HistoryRepository, now func() time.Time) *HistoryService {
	return &HistoryService{repo: repo, now: now}
}

// Record appends a result owned by userID and returns the stored record.
func (s *HistoryService) Record(ctx context.Context, userID string, result domain.ExamResult) (domain.ExamResult, error) {
	if err := validateResult(result); err != nil {
		return domain.ExamResult{}, err
	}
	result.ID = uuid.New()
	result.UserID = userID
	result.CreatedAt = stamp(s.now)
	if result.Answers == nil {
		result.Answers = map[string]string{}
	}
	if err := s.repo.Insert(ctx, result); err != nil {
		return domain.ExamResult{}, domain.StoreError("insert exam result", err)
	}
	return result, nil
}

// List returns the identity's results, newest first.
func (s *HistoryService) List(ctx context.Context, userID string) ([]domain.ExamResult, error) {
	results, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.StoreError("list exam results", err)
	}
	return results, nil
}

// Get returns one result, refusing records owned by another identity.
func (s *HistoryService) Get(ctx context.Context, userID string, id uuid.UUID) (domain.ExamResult, error) {
	result, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ExamResult{}, err
	}
	if err != nil {
		return domain.ExamResult{}, domain.StoreError("get exam result", err)
	}
	if result.UserID != userID {
		return domain.ExamResult{}, domain.ErrForbidden
	}
	return result, nil
}

func validateResult(r domain.ExamResult) error {
	switch {
	case !domain.ValidSession(r.SessionID):
		return domain.ErrInvalidSession
	case r.Score < 0 || r.Score > 100:
		return domain.Invalid("score must be between 0 and 100")
	case r.TotalQuestions < 0 || r.CorrectAnswers < 0 || r.IncorrectAnswers < 0:
		return domain.Invalid("question counts must not be negative")
	case r.CorrectAnswers+r.IncorrectAnswers > r.TotalQuestions:
		return domain.Invalid("correct_answers + incorrect_answers must not exceed total_questions")
	}
	return nil
}
