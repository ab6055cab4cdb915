package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"exam-progress-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketProgressFeed(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.token(t, "u1")

	u := "ws" + env.server.URL[len("http"):] + "/ws/progress"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current snapshot first.
	_, payload := readNext(conn, t, "progress")
	var initial domain.Progress
	mustDecode(t, payload, &initial)
	if initial.CurrentSession != 1 {
		t.Fatalf("expected default snapshot, got %+v", initial)
	}

	// A pass submitted over REST must reach the open connection.
	decode(t, env.do(t, http.MethodPost, "/submit", token, map[string]any{
		"session_id": 1,
		"answers":    sessionAnswers(env.bank, 1),
	}), http.StatusOK, nil)

	_, payload = readNext(conn, t, "progress")
	var advanced domain.Progress
	mustDecode(t, payload, &advanced)
	if advanced.CurrentSession != 2 {
		t.Fatalf("expected pushed snapshot at session 2, got %+v", advanced)
	}
}

func TestWebSocketSyncMessage(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.token(t, "u1")

	u := "ws" + env.server.URL[len("http"):] + "/ws/progress?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "progress")

	snapshot := domain.NewProgress(time.Now().UTC().Truncate(time.Millisecond))
	snapshot.CompletedSessions = []int{1}
	if err := conn.WriteJSON(map[string]any{"type": "sync", "payload": snapshot}); err != nil {
		t.Fatalf("write sync: %v", err)
	}

	// The sync reply and the feed echo of the write may arrive in either order.
	syncSeen := false
	for i := 0; i < 2 && !syncSeen; i++ {
		typ, payload := readNext(conn, t, "")
		if typ != "sync" {
			continue
		}
		syncSeen = true
		var decision struct {
			Action   string          `json:"action"`
			Progress domain.Progress `json:"progress"`
		}
		mustDecode(t, payload, &decision)
		if decision.Action != "synced" || decision.Progress.CurrentSession != 2 {
			t.Fatalf("unexpected sync decision: %+v", decision)
		}
	}
	if !syncSeen {
		t.Fatalf("expected sync reply")
	}

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	for i := 0; i < 2; i++ {
		if typ, _ := readNext(conn, t, ""); typ == "error" {
			return
		}
	}
	t.Fatalf("expected error for unsupported message type")
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	env := newTestEnv(t, false)

	u := "ws" + env.server.URL[len("http"):] + "/ws/progress"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without identity")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func mustDecode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode payload %s: %v", raw, err)
	}
}
