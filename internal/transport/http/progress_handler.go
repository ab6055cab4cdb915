package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
)

const (
	progressCookie    = "exam_progress"
	progressCookieTTL = 365 * 24 * time.Hour
)

// sessionNumber accepts a session id sent either as a JSON number or as a
// numeric string.
type sessionNumber int

func (n *sessionNumber) UnmarshalJSON(raw []byte) error {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return domain.Invalid("session id must be an integer")
	}
	*n = sessionNumber(v)
	return nil
}

type submitRequest struct {
	SessionID   *sessionNumber    `json:"session_id"`
	Answers     map[string]string `json:"answers"`
	QuestionIDs []int             `json:"questionIds,omitempty"`
}

type submitResponse struct {
	Success        bool         `json:"success"`
	CorrectCount   int          `json:"correctCount"`
	TotalQuestions int          `json:"totalQuestions"`
	Percentage     int          `json:"percentage"`
	Results        map[int]bool `json:"results"`
	Message        string       `json:"message"`
	ProgressSaved  *bool        `json:"progressSaved,omitempty"`
	HistorySaved   *bool        `json:"historySaved,omitempty"`
}

type completeRequest struct {
	SessionID *sessionNumber `json:"sessionId"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit handles POST /submit. Grading always answers; when the caller is
// authenticated and passed, progress and history are written best-effort and
// the outcome of each write is reported.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.SessionID == nil {
		h.writeError(w, r, domain.Invalid("session_id is required"))
		return
	}
	grade, err := h.svc.Exams.Grade(r.Context(), app.GradeRequest{
		SessionID:   int(*req.SessionID),
		Answers:     req.Answers,
		QuestionIDs: req.QuestionIDs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := submitResponse{
		Success:        grade.Passed,
		CorrectCount:   grade.CorrectCount,
		TotalQuestions: grade.Total,
		Percentage:     grade.Percentage,
		Results:        grade.Correct,
		Message:        submitMessage(grade, true),
	}

	if userID, ok := UserFromContext(r.Context()); ok && grade.Passed {
		advanced := true
		if _, err := h.svc.Tracker.ApplyGrade(r.Context(), userID, grade); err != nil {
			if errors.Is(err, domain.ErrStore) {
				h.log.Error("advance progress after submit", "user_id", userID, "session_id", grade.SessionID, "error", err)
			} else {
				h.log.Warn("progress not advanced after submit", "user_id", userID, "session_id", grade.SessionID, "error", err)
			}
			advanced = false
		}
		resp.ProgressSaved = &advanced
		resp.Message = submitMessage(grade, advanced)

		saved := true
		if _, err := h.svc.History.Record(r.Context(), userID, domain.ResultFromGrade(userID, grade, req.Answers)); err != nil {
			h.log.Error("record exam result", "user_id", userID, "session_id", grade.SessionID, "error", err)
			saved = false
		}
		resp.HistorySaved = &saved
	}
	respondJSON(w, http.StatusOK, resp)
}

// submitMessage words the result. advanced is false when a pass could not be
// folded into the stored progress.
func submitMessage(g domain.GradeResult, advanced bool) string {
	switch {
	case g.Passed && !advanced:
		return "Perfect! You answered every question correctly, but your progress could not be saved. Please try again."
	case g.Passed && g.SessionID >= domain.SessionCount:
		return "Perfect! You answered every question correctly. All sessions are complete!"
	case g.Passed:
		return fmt.Sprintf("Perfect! You answered every question correctly. Session %d is now unlocked!", g.SessionID+1)
	default:
		return fmt.Sprintf("You answered %d of %d questions correctly. 100%% is required to continue.", g.CorrectCount, g.Total)
	}
}

// GetProgress handles GET /progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Progress.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// CompleteSession handles POST /progress. Authenticated callers update their
// stored record; anonymous callers carry progress in a cookie.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.SessionID == nil {
		h.writeError(w, r, domain.Invalid("sessionId is required"))
		return
	}
	session := int(*req.SessionID)
	if !domain.ValidSession(session) {
		h.writeError(w, r, domain.ErrInvalidSession)
		return
	}

	if userID, ok := UserFromContext(r.Context()); ok {
		p, err := h.svc.Tracker.Complete(r.Context(), userID, session)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
		return
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := readProgressCookie(r, now)
	if !p.IsUnlocked(session) {
		h.writeError(w, r, domain.ErrSessionLocked)
		return
	}
	if err := p.MarkCompleted(session, nil, now); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := writeProgressCookie(w, p); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func readProgressCookie(r *http.Request, now time.Time) domain.Progress {
	c, err := r.Cookie(progressCookie)
	if err != nil {
		return domain.NewProgress(now)
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return domain.NewProgress(now)
	}
	var p domain.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewProgress(now)
	}
	p.Normalize()
	return p
}

func writeProgressCookie(w http.ResponseWriter, p domain.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     progressCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int(progressCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SyncProgress handles POST /progress/sync.
func (h *Handler) SyncProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var snapshot domain.Progress
	if err := decodeJSON(r, &snapshot, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	decision, err := h.svc.Progress.Sync(r.Context(), userID, snapshot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// ResetProgress handles POST /progress/reset.
func (h *Handler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Progress.Reset(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resetResponse{Success: true, Message: "progress and history cleared"})
}
