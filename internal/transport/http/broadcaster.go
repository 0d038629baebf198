package http

import (
	"context"
	"log"
	"time"

	infraredis "live-trivia-service/internal/infra/redis"

	"live-trivia-service/internal/domain"
)

// EventBroadcaster fans coordinator events out to the hub's room groups and
// mirrors leaderboard snapshots to Redis when a store is configured. It
// implements game.Broadcaster.
type EventBroadcaster struct {
	hub          *Hub
	leaderboards *infraredis.LeaderboardStore
	sessionID    string
}

func NewEventBroadcaster(hub *Hub, leaderboards *infraredis.LeaderboardStore) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, leaderboards: leaderboards}
}

// SetSessionID binds the broadcaster to the coordinator's session, for the
// leaderboard mirror key.
func (b *EventBroadcaster) SetSessionID(id string) {
	b.sessionID = id
}

func (b *EventBroadcaster) ClueRevealed(questionNumber, stage int, clue string) {
	payload := map[string]any{
		"questionNumber": questionNumber,
		"stage":          stage,
		"clue":           clue,
	}
	b.hub.BroadcastTo(RoleParticipant, "show_clue", payload)
	b.hub.BroadcastTo(RoleDisplay, "show_clue", payload)
}

func (b *EventBroadcaster) QuestionEnded(ev domain.QuestionEndEvent) {
	b.hub.BroadcastTo(RoleHost, "question_ended", map[string]any{
		"results":     ev.Results,
		"leaderboard": ev.Leaderboard,
	})

	for _, outcome := range ev.Outcomes {
		var answer any
		if outcome.Answered {
			answer = outcome.OptionID
		}
		b.hub.SendTo(outcome.ConnID, "question_results", map[string]any{
			"correctAnswer": ev.Results.CorrectAnswer,
			"yourAnswer":    answer,
			"isCorrect":     outcome.Correct,
			"points":        outcome.Points,
			"totalScore":    outcome.TotalScore,
			"rank":          outcome.Rank,
		})
	}

	b.hub.Broadcast("leaderboard_update", ev.Leaderboard)
	b.mirrorLeaderboard(ev.Leaderboard)
}

func (b *EventBroadcaster) ParticipantsSwept(removed []domain.ParticipantView, remaining int) {
	b.hub.Broadcast("participant_count", map[string]any{"count": remaining})
	for _, view := range removed {
		b.hub.BroadcastTo(RoleHost, "participant_left", map[string]any{
			"participantId": view.ID,
			"nickname":      view.Nickname,
		})
	}
}

func (b *EventBroadcaster) mirrorLeaderboard(lb domain.Leaderboard) {
	if b.leaderboards == nil || b.sessionID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.leaderboards.Publish(ctx, b.sessionID, lb); err != nil {
		log.Printf("leaderboard mirror failed: %v", err)
	}
}
