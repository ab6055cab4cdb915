package domain

import (
	"sort"
	"time"
)

// SessionState is the per-session position in the practice flow.
type SessionState string

const (
	StateLocked     SessionState = "locked"
	StateUnlocked   SessionState = "unlocked"
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
)

// Shuffler permutes n elements through swap; rand.Shuffle satisfies it.
type Shuffler func(n int, swap func(i, j int))

// Progress is a user's snapshot of exam progress. The same shape is held by
// the client and by the server; lastUpdated orders the two.
type Progress struct {
	CompletedSessions   []int               `json:"completedSessions"`
	CurrentSession      int                 `json:"currentSession"`
	LastUpdated         time.Time           `json:"lastUpdated"`
	MasteredQuestionIDs []int               `json:"masteredQuestionIds"`
	SessionQuestions    map[int][]int       `json:"sessionQuestions"`
	CurrentAnswers      map[int]map[int]int `json:"currentAnswers"`
}

// NewProgress returns the default snapshot for a user with no history.
func NewProgress(now time.Time) Progress {
	return Progress{
		CompletedSessions:   []int{},
		CurrentSession:      1,
		LastUpdated:         now,
		MasteredQuestionIDs: []int{},
		SessionQuestions:    map[int][]int{},
		CurrentAnswers:      map[int]map[int]int{},
	}
}

// Normalize restores the snapshot invariants: sorted unique sets, valid
// session keys, and currentSession within [1, SessionCount] and not behind
// the highest completed session.
func (p *Progress) Normalize() {
	completed := make([]int, 0, len(p.CompletedSessions))
	for _, s := range p.CompletedSessions {
		if ValidSession(s) {
			completed = append(completed, s)
		}
	}
	p.CompletedSessions = uniqueSorted(completed)
	p.MasteredQuestionIDs = uniqueSorted(p.MasteredQuestionIDs)

	if p.SessionQuestions == nil {
		p.SessionQuestions = map[int][]int{}
	}
	for s := range p.SessionQuestions {
		if !ValidSession(s) {
			delete(p.SessionQuestions, s)
		}
	}
	if p.CurrentAnswers == nil {
		p.CurrentAnswers = map[int]map[int]int{}
	}
	for s := range p.CurrentAnswers {
		if !ValidSession(s) {
			delete(p.CurrentAnswers, s)
		}
	}

	p.CurrentSession = clampSession(p.CurrentSession)
	if n := len(p.CompletedSessions); n > 0 {
		if next := nextSession(p.CompletedSessions[n-1]); next > p.CurrentSession {
			p.CurrentSession = next
		}
	}
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	out := p
	out.CompletedSessions = append([]int{}, p.CompletedSessions...)
	out.MasteredQuestionIDs = append([]int{}, p.MasteredQuestionIDs...)
	out.SessionQuestions = make(map[int][]int, len(p.SessionQuestions))
	for s, ids := range p.SessionQuestions {
		out.SessionQuestions[s] = append([]int{}, ids...)
	}
	out.CurrentAnswers = make(map[int]map[int]int, len(p.CurrentAnswers))
	for s, answers := range p.CurrentAnswers {
		m := make(map[int]int, len(answers))
		for q, a := range answers {
			m[q] = a
		}
		out.CurrentAnswers[s] = m
	}
	return out
}

// MarkCompleted records a passed session. Safe to apply repeatedly: the sets
// are unions and currentSession only moves forward.
func (p *Progress) MarkCompleted(session int, questionIDs []int, now time.Time) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	p.CompletedSessions = uniqueSorted(append(p.CompletedSessions, session))
	p.MasteredQuestionIDs = uniqueSorted(append(p.MasteredQuestionIDs, questionIDs...))
	if next := nextSession(session); next > p.CurrentSession {
		p.CurrentSession = next
	}
	delete(p.CurrentAnswers, session)
	p.LastUpdated = now
	return nil
}

// IsCompleted reports whether the session was passed at least once.
func (p Progress) IsCompleted(session int) bool {
	return containsSorted(p.CompletedSessions, session)
}

// IsUnlocked reports whether the session can be attempted.
func (p Progress) IsUnlocked(session int) bool {
	if !ValidSession(session) {
		return false
	}
	return session == 1 || p.IsCompleted(session-1)
}

// State derives the session's position in the practice flow.
func (p Progress) State(session int) SessionState {
	switch {
	case p.IsCompleted(session):
		return StateCompleted
	case !p.IsUnlocked(session):
		return StateLocked
	case len(p.CurrentAnswers[session]) > 0:
		return StateInProgress
	default:
		return StateUnlocked
	}
}

// AssignedQuestions returns the stored assignment for a session, if any.
func (p Progress) AssignedQuestions(session int) ([]int, bool) {
	ids, ok := p.SessionQuestions[session]
	if !ok || len(ids) == 0 {
		return nil, false
	}
	return append([]int{}, ids...), true
}

// AssignQuestions stores the question ids drawn for a session.
func (p *Progress) AssignQuestions(session int, ids []int, now time.Time) {
	if p.SessionQuestions == nil {
		p.SessionQuestions = map[int][]int{}
	}
	p.SessionQuestions[session] = append([]int{}, ids...)
	p.LastUpdated = now
}

// ShuffleAssigned reorders the existing assignment of a session without
// drawing new questions. It reports false when nothing is assigned.
func (p *Progress) ShuffleAssigned(session int, shuffle Shuffler, now time.Time) bool {
	ids, ok := p.SessionQuestions[session]
	if !ok || len(ids) == 0 {
		return false
	}
	shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	p.LastUpdated = now
	return true
}

// SaveAnswer stores a draft option index for a question.
func (p *Progress) SaveAnswer(session, questionID, option int, now time.Time) {
	if p.CurrentAnswers == nil {
		p.CurrentAnswers = map[int]map[int]int{}
	}
	answers, ok := p.CurrentAnswers[session]
	if !ok {
		answers = map[int]int{}
		p.CurrentAnswers[session] = answers
	}
	answers[questionID] = option
	p.LastUpdated = now
}

// Answers returns the draft answers for a session.
func (p Progress) Answers(session int) map[int]int {
	out := make(map[int]int, len(p.CurrentAnswers[session]))
	for q, a := range p.CurrentAnswers[session] {
		out[q] = a
	}
	return out
}

// ClearAnswers drops the draft answers for a session.
func (p *Progress) ClearAnswers(session int, now time.Time) {
	if _, ok := p.CurrentAnswers[session]; !ok {
		return
	}
	delete(p.CurrentAnswers, session)
	p.LastUpdated = now
}

// OptionLetter converts a zero-based option index into its answer letter.
func OptionLetter(index int) string {
	if index < 0 || index > 3 {
		return ""
	}
	return string(rune('A' + index))
}

func nextSession(session int) int {
	return min(session+1, SessionCount)
}

func clampSession(n int) int {
	switch {
	case n < 1:
		return 1
	case n > SessionCount:
		return SessionCount
	default:
		return n
	}
}

func uniqueSorted(in []int) []int {
	out := make([]int, 0, len(in))
	seen := make(map[int]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func containsSorted(in []int, v int) bool {
	i := sort.SearchInts(in, v)
	return i < len(in) && in[i] == v
}
