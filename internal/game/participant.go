package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"live-trivia-service/internal/domain"
)

// Answer is one entry of a participant's answer history.
type Answer struct {
	QuestionID   string
	OptionID     string
	Correct      bool
	ResponseTime float64 // seconds
	Points       int
	SubmittedAt  time.Time
}

// Participant is a joined player with accumulated score state. It is owned
// by the registry and only mutated through coordinator operations.
type Participant struct {
	ID       string
	Nickname string
	ConnID   string

	TotalScore        int
	CorrectCount      int
	AnsweredCount     int
	TotalResponseTime float64 // correct answers only, seconds
	AvgResponseTime   float64

	JoinedAt      time.Time
	LastHeartbeat time.Time
	Rank          int // 0 = unranked
	PreviousRank  int

	answers map[string]Answer // questionID -> answer, insertion-once
}

func newParticipant(nickname, connID string, now time.Time) *Participant {
	return &Participant{
		ID:            uuid.NewString(),
		Nickname:      nickname,
		ConnID:        connID,
		JoinedAt:      now,
		LastHeartbeat: now,
		answers:       make(map[string]Answer),
	}
}

// HasAnswered reports whether the participant already answered a question.
// This is the authoritative duplicate guard for submissions.
func (p *Participant) HasAnswered(questionID string) bool {
	_, ok := p.answers[questionID]
	return ok
}

// AnswerFor returns the recorded answer for a question, if any.
func (p *Participant) AnswerFor(questionID string) (Answer, bool) {
	a, ok := p.answers[questionID]
	return a, ok
}

// addAnswer appends to the answer history and updates score state. The entry
// is insertion-once; callers must check HasAnswered first.
func (p *Participant) addAnswer(questionID, optionID string, correct bool, responseTime float64, points int, now time.Time) Answer {
	a := Answer{
		QuestionID:   questionID,
		OptionID:     optionID,
		Correct:      correct,
		ResponseTime: responseTime,
		Points:       points,
		SubmittedAt:  now,
	}
	p.answers[questionID] = a
	p.AnsweredCount++
	p.TotalScore += points

	if correct {
		p.CorrectCount++
		p.TotalResponseTime += responseTime
		p.AvgResponseTime = p.TotalResponseTime / float64(p.CorrectCount)
	}
	return a
}

func (p *Participant) touch(now time.Time) {
	p.LastHeartbeat = now
}

// View returns the serializable participant data.
func (p *Participant) View() domain.ParticipantView {
	return domain.ParticipantView{
		ID:              p.ID,
		Nickname:        p.Nickname,
		TotalScore:      p.TotalScore,
		CorrectCount:    p.CorrectCount,
		AnsweredCount:   p.AnsweredCount,
		AvgResponseTime: p.AvgResponseTime,
		Rank:            p.Rank,
		JoinedAt:        p.JoinedAt,
	}
}

// LeaderboardEntry returns the ranked row for this participant.
func (p *Participant) LeaderboardEntry() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Rank:            p.Rank,
		ParticipantID:   p.ID,
		Nickname:        p.Nickname,
		Score:           p.TotalScore,
		CorrectCount:    p.CorrectCount,
		AvgResponseTime: p.AvgResponseTime,
		Change:          p.rankChange(),
	}
}

// rankChange labels the movement between the two most recent recomputations.
func (p *Participant) rankChange() string {
	if p.PreviousRank == 0 {
		return "NEW"
	}
	if p.Rank < p.PreviousRank {
		return fmt.Sprintf("+%d", p.PreviousRank-p.Rank)
	}
	if p.Rank > p.PreviousRank {
		return fmt.Sprintf("-%d", p.Rank-p.PreviousRank)
	}
	return "="
}
