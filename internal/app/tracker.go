package app

import (
	"context"
	"math/rand"
	"time"

	"exam-progress-service/internal/domain"
)

// ProgressRepository abstracts where progress snapshots live. The server keeps
// them in Postgres/Redis/memory; the client keeps them in a local SQLite file.
type ProgressRepository interface {
	Load(ctx context.Context, userID string) (domain.Progress, bool, error)
	Save(ctx context.Context, userID string, progress domain.Progress) error
	Delete(ctx context.Context, userID string) error
}

// ProgressPublisher is notified after a snapshot is written.
type ProgressPublisher interface {
	Publish(ctx context.Context, userID string, progress domain.Progress)
}

// SessionView is a loaded session: its questions in presentation order plus
// any draft answers.
type SessionView struct {
	SessionID int                 `json:"sessionId"`
	State     domain.SessionState `json:"state"`
	Questions []domain.Question   `json:"-"`
	Answers   map[int]int         `json:"answers"`
}

// Tracker drives the per-session practice flow against a progress repository.
type Tracker struct {
	progress  ProgressRepository
	questions QuestionSource
	grader    Grader
	publisher ProgressPublisher
	now       func() time.Time
	shuffle   domain.Shuffler
}

func NewTracker(progress ProgressRepository, questions QuestionSource, grader Grader) *Tracker {
	return &Tracker{
		progress:  progress,
		questions: questions,
		grader:    grader,
		now:       time.Now,
		shuffle:   rand.Shuffle,
	}
}

// WithPublisher attaches a publisher that receives every saved snapshot.
func (t *Tracker) WithPublisher(p ProgressPublisher) *Tracker {
	t.publisher = p
	return t
}

// WithClock is test-only for deterministic timestamps.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WithShuffler is test-only for deterministic retries.
func (t *Tracker) WithShuffler(shuffle domain.Shuffler) *Tracker {
	t.shuffle = shuffle
	return t
}

// Progress returns the stored snapshot or fresh defaults.
func (t *Tracker) Progress(ctx context.Context, userID string) (domain.Progress, error) {
	p, _, err := t.load(ctx, userID)
	return p, err
}

// LoadSession replays the stored assignment for a session, or draws a new one
// from questions the user has not mastered and persists it.
func (t *Tracker) LoadSession(ctx context.Context, userID string, session int) (SessionView, error) {
	if !domain.ValidSession(session) {
		return SessionView{}, domain.ErrInvalidSession
	}
	p, _, err := t.load(ctx, userID)
	if err != nil {
		return SessionView{}, err
	}
	if !p.IsUnlocked(session) {
		return SessionView{}, domain.ErrSessionLocked
	}

	if ids, ok := p.AssignedQuestions(session); ok {
		questions, err := t.questions.BatchQuestions(ctx, ids)
		if err != nil {
			return SessionView{}, err
		}
		return t.view(p, session, questions), nil
	}

	questions, _, err := t.questions.RandomQuestions(ctx, p.MasteredQuestionIDs, domain.SessionSize)
	if err != nil {
		return SessionView{}, err
	}
	if len(questions) == 0 {
		return SessionView{}, domain.ErrNoQuestionsFound
	}
	p.AssignQuestions(session, domain.IDs(questions), t.stamp())
	if err := t.save(ctx, userID, p); err != nil {
		return SessionView{}, err
	}
	return t.view(p, session, questions), nil
}

// SaveAnswer records a draft option (0-3) for a question of an unlocked session.
func (t *Tracker) SaveAnswer(ctx context.Context, userID string, session, questionID, option int) (domain.Progress, error) {
	if !domain.ValidSession(session) {
		return domain.Progress{}, domain.ErrInvalidSession
	}
	if domain.OptionLetter(option) == "" {
		return domain.Progress{}, domain.Invalid("option must be between 0 and 3")
	}
	p, _, err := t.load(ctx, userID)
	if err != nil {
		return domain.Progress{}, err
	}
	if !p.IsUnlocked(session) {
		return domain.Progress{}, domain.ErrSessionLocked
	}
	p.SaveAnswer(session, questionID, option, t.stamp())
	return p, t.save(ctx, userID, p)
}

// Submit grades the draft answers of a session. A pass completes the session;
// a failure leaves progress untouched so the session can be retried.
func (t *Tracker) Submit(ctx context.Context, userID string, session int) (domain.GradeResult, domain.Progress, error) {
	if !domain.ValidSession(session) {
		return domain.GradeResult{}, domain.Progress{}, domain.ErrInvalidSession
	}
	p, _, err := t.load(ctx, userID)
	if err != nil {
		return domain.GradeResult{}, domain.Progress{}, err
	}
	if !p.IsUnlocked(session) {
		return domain.GradeResult{}, p, domain.ErrSessionLocked
	}
	ids, _ := p.AssignedQuestions(session)
	grade, err := t.grader.Grade(ctx, GradeRequest{
		SessionID:   session,
		Answers:     domain.FormatAnswers(p.Answers(session)),
		QuestionIDs: ids,
	})
	if err != nil {
		return domain.GradeResult{}, p, err
	}
	p, err = t.ApplyGrade(ctx, userID, grade)
	return grade, p, err
}

// ApplyGrade folds a grading result into stored progress. Only passing
// results mutate anything; repeating a pass is a no-op on the sets. A pass
// for a session that is still locked is refused.
func (t *Tracker) ApplyGrade(ctx context.Context, userID string, grade domain.GradeResult) (domain.Progress, error) {
	p, _, err := t.load(ctx, userID)
	if err != nil {
		return domain.Progress{}, err
	}
	if !grade.Passed {
		return p, nil
	}
	if !p.IsUnlocked(grade.SessionID) {
		return p, domain.ErrSessionLocked
	}
	if err := p.MarkCompleted(grade.SessionID, grade.QuestionIDs, t.stamp()); err != nil {
		return p, err
	}
	return p, t.save(ctx, userID, p)
}

// Complete marks a session as passed without grading, mirroring a client that
// already knows the result.
func (t *Tracker) Complete(ctx context.Context, userID string, session int) (domain.Progress, error) {
	if !domain.ValidSession(session) {
		return domain.Progress{}, domain.ErrInvalidSession
	}
	p, _, err := t.load(ctx, userID)
	if err != nil {
		return domain.Progress{}, err
	}
	if !p.IsUnlocked(session) {
		return domain.Progress{}, domain.ErrSessionLocked
	}
	if err := p.MarkCompleted(session, nil, t.stamp()); err != nil {
		return domain.Progress{}, err
	}
	return p, t.save(ctx, userID, p)
}

// Retry clears the draft answers and reshuffles the questions already
// assigned to the session. No new questions are drawn.
func (t *Tracker) Retry(ctx context.Context, userID string, session int) (SessionView, error) {
	if !domain.ValidSession(session) {
		return SessionView{}, domain.ErrInvalidSession
	}
	p, _, err := t.load(ctx, userID)
	if err != nil {
		return SessionView{}, err
	}
	if !p.IsUnlocked(session) {
		return SessionView{}, domain.ErrSessionLocked
	}
	now := t.stamp()
	p.ClearAnswers(session, now)
	p.ShuffleAssigned(session, t.shuffle, now)
	p.LastUpdated = now
	if err := t.save(ctx, userID, p); err != nil {
		return SessionView{}, err
	}

	var questions []domain.Question
	if ids, ok := p.AssignedQuestions(session); ok {
		if questions, err = t.questions.BatchQuestions(ctx, ids); err != nil {
			return SessionView{}, err
		}
	}
	return t.view(p, session, questions), nil
}

// Reset discards the stored snapshot and returns the defaults.
func (t *Tracker) Reset(ctx context.Context, userID string) (domain.Progress, error) {
	if err := t.progress.Delete(ctx, userID); err != nil {
		return domain.Progress{}, domain.StoreError("delete progress", err)
	}
	p := domain.NewProgress(t.stamp())
	t.publish(ctx, userID, p)
	return p, nil
}

// Replace overwrites the stored snapshot, used when the server copy wins a sync.
func (t *Tracker) Replace(ctx context.Context, userID string, p domain.Progress) error {
	p.Normalize()
	return t.save(ctx, userID, p)
}

func (t *Tracker) view(p domain.Progress, session int, questions []domain.Question) SessionView {
	return SessionView{
		SessionID: session,
		State:     p.State(session),
		Questions: questions,
		Answers:   p.Answers(session),
	}
}

func (t *Tracker) load(ctx context.Context, userID string) (domain.Progress, bool, error) {
	p, ok, err := t.progress.Load(ctx, userID)
	if err != nil {
		return domain.Progress{}, false, domain.StoreError("load progress", err)
	}
	if !ok {
		return domain.NewProgress(t.stamp()), false, nil
	}
	p.Normalize()
	return p, true, nil
}

func (t *Tracker) save(ctx context.Context, userID string, p domain.Progress) error {
	if err := t.progress.Save(ctx, userID, p); err != nil {
		return domain.StoreError("save progress", err)
	}
	t.publish(ctx, userID, p)
	return nil
}

func (t *Tracker) publish(ctx context.Context, userID string, p domain.Progress) {
	if t.publisher != nil {
		t.publisher.Publish(ctx, userID, p.Clone())
	}
}

func (t *Tracker) stamp() time.Time {
	return stamp(t.now)
}

// stamp truncates to milliseconds so snapshots compare equal after a round
// trip through JSON clients and timestamptz columns.
func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}
