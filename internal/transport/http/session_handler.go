package http

import (
	"context"
	"net/http"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
)

type sessionResponse struct {
	SessionID      int                   `json:"sessionId"`
	State          domain.SessionState   `json:"state,omitempty"`
	Questions      []domain.QuestionView `json:"questions"`
	TotalQuestions int                   `json:"totalQuestions"`
	Answers        map[int]int           `json:"answers,omitempty"`
}

type randomRequest struct {
	ExcludeIDs []int `json:"excludeIds"`
	Count      int   `json:"count"`
}

type randomResponse struct {
	Questions      []domain.QuestionView `json:"questions"`
	TotalAvailable int                   `json:"totalAvailable"`
}

type batchRequest struct {
	QuestionIDs []int `json:"questionIds"`
}

type batchResponse struct {
	Questions []domain.QuestionView `json:"questions"`
}

// GetSession handles GET /sessions/{sessionId}: the deterministic bank slice.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := sessionParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	questions, err := h.svc.Exams.SessionQuestions(r.Context(), session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		SessionID:      session,
		Questions:      h.views(questions),
		TotalQuestions: len(questions),
	})
}

// AssignSession handles POST /sessions/{sessionId}/assign: replays the stored
// draw for the caller or makes and persists a new one.
func (h *Handler) AssignSession(w http.ResponseWriter, r *http.Request) {
	h.serveSessionView(w, r, h.svc.Tracker.LoadSession)
}

// RetrySession handles POST /sessions/{sessionId}/retry.
func (h *Handler) RetrySession(w http.ResponseWriter, r *http.Request) {
	h.serveSessionView(w, r, h.svc.Tracker.Retry)
}

func (h *Handler) serveSessionView(w http.ResponseWriter, r *http.Request, load func(ctx context.Context, userID string, session int) (app.SessionView, error)) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := sessionParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := load(r.Context(), userID, session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		SessionID:      view.SessionID,
		State:          view.State,
		Questions:      h.views(view.Questions),
		TotalQuestions: len(view.Questions),
		Answers:        view.Answers,
	})
}

// RandomQuestions handles POST /questions/random.
func (h *Handler) RandomQuestions(w http.ResponseWriter, r *http.Request) {
	var req randomRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}
	questions, available, err := h.svc.Exams.RandomQuestions(r.Context(), req.ExcludeIDs, req.Count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, randomResponse{Questions: h.views(questions), TotalAvailable: available})
}

// BatchQuestions handles POST /questions/batch.
func (h *Handler) BatchQuestions(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	questions, err := h.svc.Exams.BatchQuestions(r.Context(), req.QuestionIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, batchResponse{Questions: h.views(questions)})
}
