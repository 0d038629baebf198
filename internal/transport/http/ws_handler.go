package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-trivia-service/internal/game"
)

// WSHandler upgrades connections and dispatches inbound events to the
// coordinator. All replies flow through the hub's per-client send channel so
// only the writer goroutine touches the socket.
type WSHandler struct {
	coordinator  *game.Coordinator
	hub          *Hub
	events       *EventBroadcaster
	scheduler    game.Scheduler
	intermission time.Duration
	upgrader     websocket.Upgrader
}

func NewWSHandler(coordinator *game.Coordinator, hub *Hub, events *EventBroadcaster, scheduler game.Scheduler, intermission time.Duration) *WSHandler {
	return &WSHandler{
		coordinator:  coordinator,
		hub:          hub,
		events:       events,
		scheduler:    scheduler,
		intermission: intermission,
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

type identifyPayload struct {
	Role Role `json:"role"`
}

type joinPayload struct {
	Nickname string `json:"nickname"`
}

type startQuestionPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		connID: uuid.NewString(),
		send:   make(chan outboundMessage, 32),
	}
	h.hub.register(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(c, inbound)
	}

	h.hub.unregister(c)
	<-writerDone

	if view, ok := h.coordinator.Leave(c.connID); ok {
		h.hub.Broadcast("participant_count", map[string]any{"count": h.coordinator.ParticipantCount()})
		h.hub.BroadcastTo(RoleHost, "participant_left", map[string]any{
			"participantId": view.ID,
			"nickname":      view.Nickname,
		})
	}
}

func (h *WSHandler) dispatch(c *client, inbound inboundMessage) {
	switch inbound.Type {
	case "identify":
		var payload identifyPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err == nil {
			switch payload.Role {
			case RoleParticipant, RoleHost, RoleDisplay:
				h.hub.setRole(c, payload.Role)
			}
		}

	case "join_game":
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.hub.SendTo(c.connID, "game_joined", map[string]any{"success": false, "error": "invalid join payload"})
			return
		}
		view, err := h.coordinator.Join(payload.Nickname, c.connID)
		if err != nil {
			h.hub.SendTo(c.connID, "game_joined", map[string]any{"success": false, "error": err.Error()})
			return
		}
		h.hub.setRole(c, RoleParticipant)
		h.hub.SendTo(c.connID, "game_joined", map[string]any{
			"success":     true,
			"participant": view,
			"gameState":   h.coordinator.GameState(),
		})
		h.hub.Broadcast("participant_count", map[string]any{"count": h.coordinator.ParticipantCount()})
		h.hub.BroadcastTo(RoleHost, "participant_joined", map[string]any{"participant": view})

	case "join_as_host":
		h.hub.setRole(c, RoleHost)
		h.hub.SendTo(c.connID, "host_connected", map[string]any{
			"gameState":        h.coordinator.GameState(),
			"participantCount": h.coordinator.ParticipantCount(),
		})

	case "join_as_display":
		h.hub.setRole(c, RoleDisplay)
		h.hub.SendTo(c.connID, "display_connected", map[string]any{
			"gameState":        h.coordinator.GameState(),
			"participantCount": h.coordinator.ParticipantCount(),
		})

	case "start_question":
		var payload startQuestionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.hub.SendTo(c.connID, "question_started", map[string]any{"success": false, "error": "invalid payload"})
			return
		}
		h.handleStartQuestion(c, payload.QuestionIndex)

	case "end_question":
		ev, err := h.coordinator.EndQuestion()
		if err != nil {
			h.hub.SendTo(c.connID, "question_ended", map[string]any{"success": false, "error": err.Error()})
			return
		}
		h.events.QuestionEnded(ev)

	case "submit_answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.hub.SendTo(c.connID, "answer_received", map[string]any{"success": false, "error": "invalid answer payload"})
			return
		}
		receipt, err := h.coordinator.SubmitAnswer(c.connID, payload.QuestionID, payload.AnswerID)
		if err != nil {
			h.hub.SendTo(c.connID, "answer_received", map[string]any{"success": false, "error": err.Error()})
			return
		}
		h.hub.SendTo(c.connID, "answer_received", map[string]any{
			"success":   true,
			"isCorrect": receipt.Correct,
			"points":    receipt.Points,
		})
		if view, ok := h.coordinator.Participant(c.connID); ok {
			h.hub.BroadcastTo(RoleHost, "answer_submitted", map[string]any{
				"participantId": view.ID,
				"nickname":      view.Nickname,
				"answerId":      payload.AnswerID,
				"isCorrect":     receipt.Correct,
				"responseTime":  receipt.ResponseTime,
			})
		}

	case "get_stats":
		h.hub.SendTo(c.connID, "current_stats", map[string]any{
			"gameState":        h.coordinator.GameState(),
			"leaderboard":      h.coordinator.Leaderboard(),
			"participantCount": h.coordinator.ParticipantCount(),
		})

	case "get_leaderboard":
		h.hub.SendTo(c.connID, "leaderboard_update", h.coordinator.Leaderboard())

	case "pause_game":
		h.coordinator.PauseGame()
		h.hub.Broadcast("game_paused", map[string]any{"message": "Game paused by host"})

	case "end_game":
		lb := h.coordinator.EndGame()
		h.hub.Broadcast("game_ended", map[string]any{
			"message":     "Game has ended",
			"leaderboard": lb,
		})

	case "reset_game":
		h.coordinator.ResetGame()
		h.hub.Broadcast("game_reset", map[string]any{"gameState": h.coordinator.GameState()})

	case "heartbeat":
		h.coordinator.Heartbeat(c.connID)
		h.hub.SendTo(c.connID, "heartbeat_ack", map[string]any{"timestamp": time.Now().UnixMilli()})

	default:
		h.hub.SendTo(c.connID, "error", map[string]any{"message": "unsupported message type"})
	}
}

// handleStartQuestion runs the intermission flow: when a previous question
// exists its correct answer is revealed to the display first, and the next
// question starts after the configured delay.
func (h *WSHandler) handleStartQuestion(c *client, index int) {
	prev := index - 1
	if prev >= 0 {
		if view, correct, ok := h.coordinator.CorrectAnswer(prev); ok {
			h.hub.BroadcastTo(RoleDisplay, "show_correct_answer", map[string]any{
				"question":      view,
				"correctAnswer": correct,
			})
			h.scheduler.Schedule(h.intermission, func() { h.startQuestion(c, index) })
			return
		}
	}
	h.startQuestion(c, index)
}

func (h *WSHandler) startQuestion(c *client, index int) {
	started, err := h.coordinator.StartQuestion(index)
	if err != nil {
		h.hub.SendTo(c.connID, "question_started", map[string]any{"success": false, "error": err.Error()})
		return
	}
	h.hub.SendTo(c.connID, "question_started", map[string]any{
		"success":        true,
		"questionNumber": started.QuestionNumber,
	})
	h.hub.BroadcastTo(RoleParticipant, "new_question", started)
	h.hub.BroadcastTo(RoleDisplay, "new_question", started)
}
