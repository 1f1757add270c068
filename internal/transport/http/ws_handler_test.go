package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newAttemptServer(t *testing.T, states app.StateStore) *httptest.Server {
	t.Helper()
	store := memory.NewStaticQuestionStore(sampleQuestions())
	source := memory.NewCachingQuestionSource(store, time.Minute)
	scorer := app.NewScorer(store)
	wsHandler := NewWSHandler(states, source, scorer)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	return httptest.NewServer(mux)
}

func TestWebSocketAttemptFlow(t *testing.T) {
	server := newAttemptServer(t, memory.NewStateStore())
	defer server.Close()

	conn := dial(t, server, "u1")
	defer conn.Close()

	// Fresh client: the initial snapshot is an empty idle session.
	_, payload := readNext(conn, t, "state")
	if payload["lifecycle"] != "idle" {
		t.Fatalf("expected idle, got %v", payload["lifecycle"])
	}

	writeMsg(conn, t, "start", nil)
	_, payload = readNext(conn, t, "state")
	if payload["total"].(float64) != 2 {
		t.Fatalf("expected 2 questions, got %v", payload["total"])
	}

	writeMsg(conn, t, "begin", nil)
	readNext(conn, t, "state")

	writeMsg(conn, t, "answer", map[string]any{"questionId": "1", "optionKey": "o2"})
	readNext(conn, t, "state")
	writeMsg(conn, t, "next", nil)
	_, payload = readNext(conn, t, "state")
	if payload["index"].(float64) != 1 {
		t.Fatalf("expected index 1, got %v", payload["index"])
	}
	writeMsg(conn, t, "answer", map[string]any{"questionId": "2", "optionKey": "o1"})
	readNext(conn, t, "state")

	writeMsg(conn, t, "submit", nil)
	_, payload = readNext(conn, t, "result")
	if payload["totalQuestions"].(float64) != 2 || payload["correctCount"].(float64) != 1 {
		t.Fatalf("unexpected result: %v", payload)
	}
}

func TestWebSocketReconnectRehydrates(t *testing.T) {
	states := memory.NewStateStore()
	server := newAttemptServer(t, states)
	defer server.Close()

	conn := dial(t, server, "u2")
	readNext(conn, t, "state")
	writeMsg(conn, t, "start", nil)
	readNext(conn, t, "state")
	writeMsg(conn, t, "begin", nil)
	readNext(conn, t, "state")
	writeMsg(conn, t, "answer", map[string]any{"questionId": "1", "optionKey": "o2"})
	readNext(conn, t, "state")
	writeMsg(conn, t, "next", nil)
	readNext(conn, t, "state")
	conn.Close()

	// The same client connects again: the attempt picks up where it left off.
	conn2 := dial(t, server, "u2")
	defer conn2.Close()
	_, payload := readNext(conn2, t, "state")
	if payload["lifecycle"] != "active" {
		t.Fatalf("expected active after reconnect, got %v", payload["lifecycle"])
	}
	if payload["index"].(float64) != 1 {
		t.Fatalf("expected index 1 after reconnect, got %v", payload["index"])
	}
	answers := payload["answers"].(map[string]any)
	if answers["1"] != "o2" {
		t.Fatalf("expected recorded answer intact, got %v", answers)
	}
}

func TestWebSocketBeginWithoutQuestions(t *testing.T) {
	server := newAttemptServer(t, memory.NewStateStore())
	defer server.Close()

	conn := dial(t, server, "u3")
	defer conn.Close()
	readNext(conn, t, "state")

	writeMsg(conn, t, "begin", nil)
	_, payload := readNext(conn, t, "error")
	if payload["code"] != "transition" {
		t.Fatalf("expected transition error, got %v", payload)
	}
}

func dial(t *testing.T, server *httptest.Server, clientID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?clientId=" + clientID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(conn *websocket.Conn, t *testing.T, msgType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
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

func sampleQuestions() []domain.AdminQuestion {
	return []domain.AdminQuestion{
		{
			ID:     "1",
			Text:   "What is 2 + 2?",
			Active: true,
			Options: []domain.AdminOption{
				{ID: "o1", Text: "3", IsCorrect: false},
				{ID: "o2", Text: "4", IsCorrect: true},
				{ID: "o3", Text: "5", IsCorrect: false},
			},
		},
		{
			ID:     "2",
			Text:   "Pick B",
			Active: true,
			Options: []domain.AdminOption{
				{ID: "o1", Text: "A", IsCorrect: false},
				{ID: "o2", Text: "B", IsCorrect: true},
			},
		},
	}
}
