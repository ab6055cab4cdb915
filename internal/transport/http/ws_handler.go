package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/logger"
	"github.com/gorilla/websocket"
)

// WSHandler streams progress snapshots of the authenticated identity and
// accepts sync requests over the same connection.
type WSHandler struct {
	feed     *app.ProgressFeed
	progress *app.ProgressService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(feed *app.ProgressFeed, progress *app.ProgressService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		feed:     feed,
		progress: progress,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS handles GET /ws/progress.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	// subscribe before reading the snapshot so no write slips between them
	updates, cancel := h.feed.Subscribe(userID)
	defer cancel()

	current, err := h.progress.Get(r.Context(), userID)
	if err != nil {
		h.log.Error("load progress for ws", "user_id", userID, "error", err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "internal error"}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "user_id", userID, "error", err)
				// unblock the reader and drain until the handler closes send
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "progress", Payload: current}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "sync":
			var snapshot domain.Progress
			if err := json.Unmarshal(inbound.Payload, &snapshot); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid sync payload"}}
				continue
			}
			decision, err := h.progress.Sync(r.Context(), userID, snapshot)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: wsErrorMessage(err)}}
				continue
			}
			send <- outboundMessage[any]{Type: "sync", Payload: decision}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func wsErrorMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrStore) {
		return err.Error()
	}
	return "internal error"
}
