package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/game"
)

func newTestServer(t *testing.T) (*httptest.Server, *game.Coordinator) {
	t.Helper()

	hub := NewHub()
	events := NewEventBroadcaster(hub, nil)
	scheduler := game.TimerScheduler{}
	coordinator := game.New(game.DefaultSettings(), testRecords(), scheduler, events)

	wsHandler := NewWSHandler(coordinator, hub, events, scheduler, 10*time.Millisecond)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, coordinator
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips interleaved broadcasts (participant counts, leaderboards)
// until a message of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func TestWebSocketQuestionFlow(t *testing.T) {
	server, _ := newTestServer(t)

	host := dial(t, server)
	send(t, host, "join_as_host", nil)
	readUntil(t, host, "host_connected")

	participant := dial(t, server)
	send(t, participant, "join_game", map[string]any{"nickname": "Alice"})
	joined := readUntil(t, participant, "game_joined")
	if joined["success"] != true {
		t.Fatalf("join failed: %+v", joined)
	}
	readUntil(t, host, "participant_joined")

	send(t, host, "start_question", map[string]any{"questionIndex": 0})
	started := readUntil(t, host, "question_started")
	if started["success"] != true {
		t.Fatalf("start failed: %+v", started)
	}

	newQ := readUntil(t, participant, "new_question")
	question, ok := newQ["question"].(map[string]any)
	if !ok {
		t.Fatalf("new_question payload = %+v", newQ)
	}
	if _, leaked := question["correctAnswer"]; leaked {
		t.Fatalf("correct answer leaked to participants: %+v", question)
	}

	send(t, participant, "submit_answer", map[string]any{"questionId": "q1", "answerId": "b"})
	received := readUntil(t, participant, "answer_received")
	if received["success"] != true || received["isCorrect"] != true {
		t.Fatalf("answer_received = %+v", received)
	}
	submitted := readUntil(t, host, "answer_submitted")
	if submitted["nickname"] != "Alice" || submitted["isCorrect"] != true {
		t.Fatalf("answer_submitted = %+v", submitted)
	}

	send(t, host, "end_question", nil)
	ended := readUntil(t, host, "question_ended")
	if _, ok := ended["results"]; !ok {
		t.Fatalf("question_ended = %+v", ended)
	}

	results := readUntil(t, participant, "question_results")
	if results["isCorrect"] != true || results["correctAnswer"] != "b" {
		t.Fatalf("question_results = %+v", results)
	}
	readUntil(t, participant, "leaderboard_update")
}

func TestWebSocketIntermissionBeforeNextQuestion(t *testing.T) {
	server, _ := newTestServer(t)

	host := dial(t, server)
	send(t, host, "join_as_host", nil)
	readUntil(t, host, "host_connected")

	display := dial(t, server)
	send(t, display, "join_as_display", nil)
	readUntil(t, display, "display_connected")

	send(t, host, "start_question", map[string]any{"questionIndex": 0})
	readUntil(t, host, "question_started")
	readUntil(t, display, "new_question")

	// Starting the next question first reveals the previous answer to the
	// display, then delivers the new question after the intermission.
	send(t, host, "start_question", map[string]any{"questionIndex": 1})
	reveal := readUntil(t, display, "show_correct_answer")
	if reveal["correctAnswer"] != "b" {
		t.Fatalf("show_correct_answer = %+v", reveal)
	}

	next := readUntil(t, display, "new_question")
	question, ok := next["question"].(map[string]any)
	if !ok || question["id"] != "q2" {
		t.Fatalf("new_question after intermission = %+v", next)
	}

	started := readUntil(t, host, "question_started")
	if started["success"] != true || started["questionNumber"] != float64(2) {
		t.Fatalf("question_started = %+v", started)
	}
}

func TestWebSocketDuplicateSubmitRejected(t *testing.T) {
	server, coordinator := newTestServer(t)

	participant := dial(t, server)
	send(t, participant, "join_game", map[string]any{"nickname": "Bob"})
	readUntil(t, participant, "game_joined")

	if _, err := coordinator.StartQuestion(0); err != nil {
		t.Fatalf("start question: %v", err)
	}

	send(t, participant, "submit_answer", map[string]any{"questionId": "q1", "answerId": "a"})
	first := readUntil(t, participant, "answer_received")
	if first["success"] != true {
		t.Fatalf("first answer rejected: %+v", first)
	}

	send(t, participant, "submit_answer", map[string]any{"questionId": "q1", "answerId": "b"})
	second := readUntil(t, participant, "answer_received")
	if second["success"] != false {
		t.Fatalf("duplicate answer accepted: %+v", second)
	}
}

func TestWebSocketJoinValidation(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dial(t, server)
	send(t, conn, "join_game", map[string]any{"nickname": "x"})
	joined := readUntil(t, conn, "game_joined")
	if joined["success"] != false || joined["error"] == "" {
		t.Fatalf("expected rejection, got %+v", joined)
	}
}

func TestWebSocketHeartbeatAndDisconnect(t *testing.T) {
	server, coordinator := newTestServer(t)

	conn := dial(t, server)
	send(t, conn, "join_game", map[string]any{"nickname": "Carol"})
	readUntil(t, conn, "game_joined")

	send(t, conn, "heartbeat", nil)
	ack := readUntil(t, conn, "heartbeat_ack")
	if _, ok := ack["timestamp"]; !ok {
		t.Fatalf("heartbeat_ack = %+v", ack)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for coordinator.ParticipantCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("participant not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func testRecords() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{
			ID:   "q1",
			Text: "What is the capital of France?",
			Options: []domain.Option{
				{ID: "a", Text: "Lyon"},
				{ID: "b", Text: "Paris"},
				{ID: "c", Text: "Marseille"},
				{ID: "d", Text: "Nice"},
			},
			CorrectAnswer: "b",
			TimeLimit:     30,
			Clues:         []string{"It hosts the Eiffel Tower"},
		},
		{
			ID:   "q2",
			Text: "Which ocean is the largest?",
			Options: []domain.Option{
				{ID: "a", Text: "Atlantic"},
				{ID: "b", Text: "Indian"},
				{ID: "c", Text: "Pacific"},
				{ID: "d", Text: "Arctic"},
			},
			CorrectAnswer: "c",
			TimeLimit:     30,
		},
	}
}
