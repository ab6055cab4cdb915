package http

import (
	"net/http"

	"exam-progress-service/internal/domain"
	"github.com/google/uuid"
)

type historyListResponse struct {
	History []domain.ExamResult `json:"history"`
}

type historyResultResponse struct {
	Result domain.ExamResult `json:"result"`
}

type historyCreatedResponse struct {
	Success bool              `json:"success"`
	Data    domain.ExamResult `json:"data"`
}

// ListHistory handles GET /history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	results, err := h.svc.History.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, historyListResponse{History: results})
}

// GetHistory handles GET /history/{id}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, domain.Invalid("id must be a uuid"))
		return
	}
	result, err := h.svc.History.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, historyResultResponse{Result: result})
}

// RecordHistory handles POST /history.
func (h *Handler) RecordHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var payload domain.ExamResult
	if err := decodeJSON(r, &payload, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.svc.History.Record(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, historyCreatedResponse{Success: true, Data: result})
}
