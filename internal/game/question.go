package game

import (
	"math"
	"time"

	"live-trivia-service/internal/domain"
)

// Question is immutable quiz content plus the mutable state of one
// activation. Activation state is written only while the question is the
// current one, under the coordinator's lock.
type Question struct {
	ID            string
	Text          string
	Options       []domain.Option
	CorrectAnswer string
	TimeLimit     int // seconds
	Clues         []string

	startedAt time.Time
	endsAt    time.Time
	locked    bool
	answers   map[string]string // participantID -> optionID, first write wins
}

func NewQuestion(rec domain.QuestionRecord) *Question {
	return &Question{
		ID:            rec.ID,
		Text:          rec.Text,
		Options:       rec.Options,
		CorrectAnswer: rec.CorrectAnswer,
		TimeLimit:     rec.TimeLimit,
		Clues:         rec.Clues,
		answers:       make(map[string]string),
	}
}

// Start opens a fresh activation window and clears prior activation state.
func (q *Question) Start(now time.Time) {
	q.startedAt = now
	q.endsAt = now.Add(time.Duration(q.TimeLimit) * time.Second)
	q.locked = false
	q.answers = make(map[string]string)
}

// End locks the question; further answers are rejected.
func (q *Question) End() {
	q.locked = true
}

func (q *Question) Started() bool {
	return !q.startedAt.IsZero()
}

func (q *Question) StartedAt() time.Time {
	return q.startedAt
}

func (q *Question) Expired(now time.Time) bool {
	if q.endsAt.IsZero() {
		return false
	}
	return !now.Before(q.endsAt)
}

// RemainingSeconds returns the whole seconds left in the activation window,
// or the full time limit if the question has not started.
func (q *Question) RemainingSeconds(now time.Time) int {
	if q.endsAt.IsZero() {
		return q.TimeLimit
	}
	remaining := q.endsAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// RecordAnswer stores a participant's selection. The expiry check here
// resolves submissions racing the boundary; duplicates are also caught
// upstream against the participant's answer history.
func (q *Question) RecordAnswer(participantID, optionID string, now time.Time) error {
	if q.locked {
		return domain.ErrQuestionLocked
	}
	if q.Expired(now) {
		return domain.ErrQuestionExpired
	}
	if _, ok := q.answers[participantID]; ok {
		return domain.ErrAlreadyAnswered
	}
	q.answers[participantID] = optionID
	return nil
}

func (q *Question) IsCorrect(optionID string) bool {
	return optionID == q.CorrectAnswer
}

// Clue returns the clue for a 1-based stage, if declared.
func (q *Question) Clue(stage int) (string, bool) {
	if stage < 1 || stage > len(q.Clues) {
		return "", false
	}
	return q.Clues[stage-1], true
}

// Stats tallies the collected answers. Every declared option appears in the
// distribution even with zero picks.
func (q *Question) Stats() domain.QuestionStats {
	distribution := make(map[string]int, len(q.Options))
	for _, opt := range q.Options {
		distribution[opt.ID] = 0
	}

	correct := 0
	for _, optionID := range q.answers {
		if _, ok := distribution[optionID]; ok {
			distribution[optionID]++
		}
		if optionID == q.CorrectAnswer {
			correct++
		}
	}

	total := len(q.answers)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return domain.QuestionStats{
		TotalAnswers:       total,
		CorrectAnswers:     correct,
		CorrectPercentage:  percentage,
		AnswerDistribution: distribution,
	}
}

// ClientView returns the question without the correct answer. Clue 1, when
// declared, ships with the question.
func (q *Question) ClientView() domain.ClientQuestion {
	clue := ""
	if len(q.Clues) > 0 {
		clue = q.Clues[0]
	}
	return domain.ClientQuestion{
		ID:        q.ID,
		Text:      q.Text,
		Options:   q.Options,
		TimeLimit: q.TimeLimit,
		Clue:      clue,
	}
}

// ResultsView returns the question with the correct answer and stats.
func (q *Question) ResultsView() domain.QuestionResults {
	return domain.QuestionResults{
		ID:            q.ID,
		Text:          q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Stats:         q.Stats(),
	}
}
