package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"exam-progress-service/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type examResultRow struct {
	bun.BaseModel `bun:"table:exam_results"`

	ID               uuid.UUID         `bun:"id,pk,type:uuid"`
	UserID           string            `bun:"user_id,notnull"`
	SessionID        int               `bun:"session_id,notnull"`
	Score            int               `bun:"score,notnull"`
	TotalQuestions   int               `bun:"total_questions,notnull"`
	CorrectAnswers   int               `bun:"correct_answers,notnull"`
	IncorrectAnswers int               `bun:"incorrect_answers,notnull"`
	Answers          map[string]string `bun:"answers,type:jsonb,notnull"`
	CreatedAt        time.Time         `bun:"created_at,notnull"`
}

// HistoryStore appends exam results to the exam_results table.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Insert(ctx context.Context, result domain.ExamResult) error {
	row := toRow(result)
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return err
}

func (s *HistoryStore) ListByUser(ctx context.Context, userID string) ([]domain.ExamResult, error) {
	var rows []examResultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExamResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *HistoryStore) Get(ctx context.Context, id uuid.UUID) (domain.ExamResult, error) {
	var row examResultRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ExamResult{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ExamResult{}, err
	}
	return row.toDomain(), nil
}

func (s *HistoryStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.NewDelete().
		Model((*examResultRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func toRow(r domain.ExamResult) examResultRow {
	answers := r.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	return examResultRow{
		ID:               r.ID,
		UserID:           r.UserID,
		SessionID:        r.SessionID,
		Score:            r.Score,
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		IncorrectAnswers: r.IncorrectAnswers,
		Answers:          answers,
		CreatedAt:        r.CreatedAt,
	}
}

func (row examResultRow) toDomain() domain.ExamResult {
	return domain.ExamResult{
		ID:               row.ID,
		UserID:           row.UserID,
		SessionID:        row.SessionID,
		Score:            row.Score,
		TotalQuestions:   row.TotalQuestions,
		CorrectAnswers:   row.CorrectAnswers,
		IncorrectAnswers: row.IncorrectAnswers,
		Answers:          row.Answers,
		CreatedAt:        row.CreatedAt.UTC(),
	}
}
