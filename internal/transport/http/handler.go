package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/logger"
)

// Services bundles the use cases the REST handlers call into.
type Services struct {
	Exams    *app.ExamService
	Tracker  *app.Tracker
	Progress *app.ProgressService
	History  *app.HistoryService
}

// Handler serves the JSON API. It holds no per-user state; every request
// resolves its identity from the context and hits the stores through the
// services.
type Handler struct {
	svc           Services
	log           *logger.Logger
	exposeAnswers bool
}

func NewHandler(svc Services, log *logger.Logger, exposeAnswers bool) *Handler {
	return &Handler{svc: svc, log: log, exposeAnswers: exposeAnswers}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Store failures are logged
// in full and reported to the caller without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrStore):
		h.log.Error("store error", "path", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	case errors.Is(err, domain.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		h.log.Error("unhandled error", "path", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a request body into v. An empty body is accepted only when
// allowEmpty is set, leaving v at its zero value.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	if err != nil {
		return domain.Invalid("invalid request body")
	}
	return nil
}

func sessionParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("sessionId"))
	if err != nil || !domain.ValidSession(n) {
		return 0, domain.ErrInvalidSession
	}
	return n, nil
}

// requireUser returns the authenticated identity or ErrUnauthenticated.
func requireUser(r *http.Request) (string, error) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		return "", domain.ErrUnauthenticated
	}
	return userID, nil
}

func (h *Handler) views(questions []domain.Question) []domain.QuestionView {
	return domain.Views(questions, h.exposeAnswers)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}
