package http

import (
	"net/http"

	"exam-progress-service/internal/auth"
	"exam-progress-service/internal/logger"
)

// NewRouter registers every route and wraps the mux with request logging and
// bearer authentication.
func NewRouter(h *Handler, ws *WSHandler, tokens *auth.Tokens, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)

	// Questions
	mux.HandleFunc("GET /sessions/{sessionId}", h.GetSession)
	mux.HandleFunc("POST /sessions/{sessionId}/assign", h.AssignSession)
	mux.HandleFunc("POST /sessions/{sessionId}/retry", h.RetrySession)
	mux.HandleFunc("POST /questions/random", h.RandomQuestions)
	mux.HandleFunc("POST /questions/batch", h.BatchQuestions)
	mux.HandleFunc("POST /submit", h.Submit)

	// Progress
	mux.HandleFunc("GET /progress", h.GetProgress)
	mux.HandleFunc("POST /progress", h.CompleteSession)
	mux.HandleFunc("POST /progress/sync", h.SyncProgress)
	mux.HandleFunc("POST /progress/reset", h.ResetProgress)

	// History
	mux.HandleFunc("GET /history", h.ListHistory)
	mux.HandleFunc("GET /history/{id}", h.GetHistory)
	mux.HandleFunc("POST /history", h.RecordHistory)

	if ws != nil {
		mux.HandleFunc("GET /ws/progress", ws.ServeWS)
	}

	return RequestLogger(log)(Authenticate(tokens)(mux))
}
