package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/game"
)

// APIHandler serves the small HTTP surface next to the websocket: health,
// game status, and custom question upload.
type APIHandler struct {
	coordinator *game.Coordinator
}

func NewAPIHandler(coordinator *game.Coordinator) *APIHandler {
	return &APIHandler{coordinator: coordinator}
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"timestamp":    time.Now().UnixMilli(),
		"participants": h.coordinator.ParticipantCount(),
		"gameStatus":   h.coordinator.Status(),
	})
}

func (h *APIHandler) GameStatus(w http.ResponseWriter, r *http.Request) {
	state := h.coordinator.GameState()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          state.Status,
		"participants":    state.ParticipantCount,
		"currentQuestion": state.CurrentQuestionNumber,
		"totalQuestions":  state.TotalQuestions,
	})
}

type replaceQuestionsRequest struct {
	Questions []domain.QuestionRecord `json:"questions"`
}

// ReplaceQuestions swaps in an uploaded question set.
func (h *APIHandler) ReplaceQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req replaceQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "questions must be an array"})
		return
	}

	count, err := h.coordinator.ReplaceQuestions(req.Questions)
	if err != nil {
		body := map[string]any{"success": false, "error": err.Error()}
		var verr *domain.ValidationError
		if errors.As(err, &verr) && verr.Index > 0 {
			body["index"] = verr.Index
		}
		writeJSON(w, http.StatusBadRequest, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
