package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SessionSize is the number of questions presented per session.
	SessionSize = 10
	// SessionCount is the number of sessions in the exam.
	SessionCount = 20
	// DefaultDrawCount is used when a random draw asks for zero or fewer questions.
	DefaultDrawCount = 10
)

// Question is a single bank record. Answer holds the correct option letter (A-D).
type Question struct {
	ID          int       `json:"id" yaml:"id"`
	Topic       string    `json:"topic" yaml:"topic"`
	Prompt      string    `json:"question" yaml:"question"`
	Options     [4]string `json:"options" yaml:"options"`
	Answer      string    `json:"answer" yaml:"answer"`
	Explanation string    `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// CorrectIndex converts the answer letter into a zero-based option index, or -1.
func (q Question) CorrectIndex() int {
	if len(q.Answer) != 1 || q.Answer[0] < 'A' || q.Answer[0] > 'D' {
		return -1
	}
	return int(q.Answer[0] - 'A')
}

// QuestionView is the API projection of a question. CorrectAnswer and
// Explanation are only filled in authoring mode.
type QuestionView struct {
	ID            int       `json:"id"`
	Topic         string    `json:"topic"`
	Question      string    `json:"question"`
	Options       [4]string `json:"options"`
	CorrectAnswer *int      `json:"correctAnswer,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
}

// View projects a question, optionally including the answer key.
func (q Question) View(withAnswers bool) QuestionView {
	v := QuestionView{
		ID:       q.ID,
		Topic:    q.Topic,
		Question: q.Prompt,
		Options:  q.Options,
	}
	if withAnswers {
		idx := q.CorrectIndex()
		v.CorrectAnswer = &idx
		v.Explanation = q.Explanation
	}
	return v
}

// Views projects a list of questions.
func Views(questions []Question, withAnswers bool) []QuestionView {
	out := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.View(withAnswers))
	}
	return out
}

// GradeResult is the outcome of grading one submission.
type GradeResult struct {
	SessionID    int          `json:"sessionId"`
	QuestionIDs  []int        `json:"questionIds"`
	Correct      map[int]bool `json:"results"`
	CorrectCount int          `json:"correctCount"`
	Total        int          `json:"totalQuestions"`
	Percentage   int          `json:"percentage"`
	Passed       bool         `json:"passed"`
}

// Incorrect returns the number of questions not answered correctly.
func (r GradeResult) Incorrect() int {
	return r.Total - r.CorrectCount
}

// ExamResult is an append-only history record of one graded attempt.
type ExamResult struct {
	ID               uuid.UUID         `json:"id"`
	UserID           string            `json:"user_id"`
	SessionID        int               `json:"session_id"`
	Score            int               `json:"score"`
	TotalQuestions   int               `json:"total_questions"`
	CorrectAnswers   int               `json:"correct_answers"`
	IncorrectAnswers int               `json:"incorrect_answers"`
	Answers          map[string]string `json:"answers"`
	CreatedAt        time.Time         `json:"created_at"`
}

// ResultFromGrade builds a history record for a graded submission.
func ResultFromGrade(userID string, grade GradeResult, answers map[string]string) ExamResult {
	return ExamResult{
		UserID:           userID,
		SessionID:        grade.SessionID,
		Score:            grade.Percentage,
		TotalQuestions:   grade.Total,
		CorrectAnswers:   grade.CorrectCount,
		IncorrectAnswers: grade.Incorrect(),
		Answers:          answers,
	}
}
