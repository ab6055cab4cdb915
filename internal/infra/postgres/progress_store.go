package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"exam-progress-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore keeps one row per identity in user_progress. Collections are
// stored as JSONB so the row mirrors the snapshot shape the client holds.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) Load(ctx context.Context, userID string) (domain.Progress, bool, error) {
	var (
		p                                     domain.Progress
		completed, mastered, assigned, drafts []byte
		lastUpdated                           time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT completed_sessions, current_session, mastered_question_ids,
		       session_questions, current_answers, last_updated
		FROM user_progress WHERE user_id = $1`, userID).
		Scan(&completed, &p.CurrentSession, &mastered, &assigned, &drafts, &lastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, err
	}

	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{completed, &p.CompletedSessions},
		{mastered, &p.MasteredQuestionIDs},
		{assigned, &p.SessionQuestions},
		{drafts, &p.CurrentAnswers},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return domain.Progress{}, false, err
		}
	}
	p.LastUpdated = lastUpdated.UTC()
	return p, true, nil
}

// Save upserts the snapshot; concurrent writers for one identity resolve to
// whichever statement commits last.
func (s *ProgressStore) Save(ctx context.Context, userID string, p domain.Progress) error {
	p.Normalize()
	completed, err := json.Marshal(p.CompletedSessions)
	if err != nil {
		return err
	}
	mastered, err := json.Marshal(p.MasteredQuestionIDs)
	if err != nil {
		return err
	}
	assigned, err := json.Marshal(p.SessionQuestions)
	if err != nil {
		return err
	}
	drafts, err := json.Marshal(p.CurrentAnswers)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_progress
			(user_id, completed_sessions, current_session, mastered_question_ids,
			 session_questions, current_answers, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			completed_sessions    = EXCLUDED.completed_sessions,
			current_session       = EXCLUDED.current_session,
			mastered_question_ids = EXCLUDED.mastered_question_ids,
			session_questions     = EXCLUDED.session_questions,
			current_answers       = EXCLUDED.current_answers,
			last_updated          = EXCLUDED.last_updated`,
		userID, string(completed), p.CurrentSession, string(mastered),
		string(assigned), string(drafts), p.LastUpdated)
	return err
}

func (s *ProgressStore) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_progress WHERE user_id = $1`, userID)
	return err
}
