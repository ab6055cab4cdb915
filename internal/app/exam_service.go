package app

import (
	"context"
	"math/rand"

	"exam-progress-service/internal/domain"
)

// BankRepository serves the ordered, read-only question bank (from cache/backing store).
type BankRepository interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// QuestionSource hands out questions for assignment. ExamService implements it
// in-process; the HTTP client implements it remotely.
type QuestionSource interface {
	RandomQuestions(ctx context.Context, exclude []int, count int) ([]domain.Question, int, error)
	BatchQuestions(ctx context.Context, ids []int) ([]domain.Question, error)
}

// Grader scores a submission.
type Grader interface {
	Grade(ctx context.Context, req GradeRequest) (domain.GradeResult, error)
}

// GradeRequest carries a submission. QuestionIDs pins the question set to an
// assigned draw; when empty the set is resolved from the session and answers.
type GradeRequest struct {
	SessionID   int
	Answers     map[string]string
	QuestionIDs []int
}

// ExamService contains the bank, assignment and grading use cases.
type ExamService struct {
	bank    BankRepository
	shuffle domain.Shuffler
}

func NewExamService(bank BankRepository) *ExamService {
	return &ExamService{bank: bank, shuffle: rand.Shuffle}
}

// NewExamServiceWithShuffler is test-only for deterministic draws.
func NewExamServiceWithShuffler(bank BankRepository, shuffle domain.Shuffler) *ExamService {
	return &ExamService{bank: bank, shuffle: shuffle}
}

// SessionQuestions returns the deterministic slice for a session.
func (s *ExamService) SessionQuestions(ctx context.Context, session int) ([]domain.Question, error) {
	if !domain.ValidSession(session) {
		return nil, domain.ErrInvalidSession
	}
	bank, err := s.questions(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SliceQuestions(bank, session)
}

// RandomQuestions draws count questions not in exclude, de-duplicated by prompt.
// The second value is the size of the pool the draw was made from.
func (s *ExamService) RandomQuestions(ctx context.Context, exclude []int, count int) ([]domain.Question, int, error) {
	bank, err := s.questions(ctx)
	if err != nil {
		return nil, 0, err
	}
	selected, available := domain.DrawRandom(bank, domain.IDSet(exclude), count, s.shuffle)
	return selected, available, nil
}

// BatchQuestions returns questions in the order of ids.
func (s *ExamService) BatchQuestions(ctx context.Context, ids []int) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	bank, err := s.questions(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Batch(bank, ids), nil
}

// Grade resolves the question set for the submission and scores it.
func (s *ExamService) Grade(ctx context.Context, req GradeRequest) (domain.GradeResult, error) {
	if !domain.ValidSession(req.SessionID) {
		return domain.GradeResult{}, domain.ErrInvalidSession
	}
	if req.Answers == nil {
		return domain.GradeResult{}, domain.Invalid("answers are required")
	}
	bank, err := s.questions(ctx)
	if err != nil {
		return domain.GradeResult{}, err
	}

	answers := domain.ParseAnswers(req.Answers)
	questions := resolveQuestions(bank, req.SessionID, req.QuestionIDs, answers)
	if len(questions) == 0 {
		return domain.GradeResult{}, domain.ErrNoQuestionsFound
	}
	return domain.Grade(req.SessionID, questions, answers), nil
}

// resolveQuestions picks the graded set: the pinned ids, else the session
// slice when every answer falls inside it, else exactly the answered ids.
func resolveQuestions(bank []domain.Question, session int, pinned []int, answers map[int]string) []domain.Question {
	if len(pinned) > 0 {
		return domain.Batch(bank, pinned)
	}
	answered := make([]int, 0, len(answers))
	for id := range answers {
		answered = append(answered, id)
	}
	if domain.InSlice(bank, session, answered) {
		slice, _ := domain.SliceQuestions(bank, session)
		return slice
	}
	out := make([]domain.Question, 0, len(answered))
	for _, q := range bank {
		if _, ok := answers[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out
}

func (s *ExamService) questions(ctx context.Context) ([]domain.Question, error) {
	bank, err := s.bank.Questions(ctx)
	if err != nil {
		return nil, domain.StoreError("load bank", err)
	}
	return bank, nil
}
