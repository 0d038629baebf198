package domain

import "time"

// Status is the lifecycle state of the game session.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// Option is a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionRecord is the persisted/uploaded form of a question. Clues are
// optional and revealed progressively while the question is live; clue 1
// ships with the question itself.
type QuestionRecord struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	TimeLimit     int      `json:"timeLimit"`
	Clues         []string `json:"clues,omitempty"`
}

// ClientQuestion is the client-safe view of an active question; the correct
// answer is withheld.
type ClientQuestion struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Options   []Option `json:"options"`
	TimeLimit int      `json:"timeLimit"`
	Clue      string   `json:"clue,omitempty"`
}

// StartedQuestion is returned when a question is activated.
type StartedQuestion struct {
	Question       ClientQuestion `json:"question"`
	QuestionNumber int            `json:"questionNumber"`
	TotalQuestions int            `json:"totalQuestions"`
}

// QuestionStats aggregates the answers collected for one question.
type QuestionStats struct {
	TotalAnswers       int            `json:"totalAnswers"`
	CorrectAnswers     int            `json:"correctAnswers"`
	CorrectPercentage  int            `json:"correctPercentage"`
	AnswerDistribution map[string]int `json:"answerDistribution"`
}

// QuestionResults is the post-question view including the correct answer.
type QuestionResults struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	Options       []Option      `json:"options"`
	CorrectAnswer string        `json:"correctAnswer"`
	Stats         QuestionStats `json:"stats"`
}

// ParticipantView is the serializable form of a participant.
type ParticipantView struct {
	ID              string    `json:"id"`
	Nickname        string    `json:"nickname"`
	TotalScore      int       `json:"totalScore"`
	CorrectCount    int       `json:"correctCount"`
	AnsweredCount   int       `json:"answeredCount"`
	AvgResponseTime float64   `json:"avgResponseTime"`
	Rank            int       `json:"rank"`
	JoinedAt        time.Time `json:"joinedAt"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	ParticipantID   string  `json:"participantId"`
	Nickname        string  `json:"nickname"`
	Score           int     `json:"score"`
	CorrectCount    int     `json:"correctCount"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	Change          string  `json:"change"`
}

// Leaderboard is a cached, ranked top-N snapshot plus aggregate count.
type Leaderboard struct {
	Entries           []LeaderboardEntry `json:"entries"`
	TotalParticipants int                `json:"totalParticipants"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// PersonalRank is a participant's own standing.
type PersonalRank struct {
	Rank              int `json:"rank"`
	TotalScore        int `json:"totalScore"`
	CorrectCount      int `json:"correctCount"`
	TotalParticipants int `json:"totalParticipants"`
}

// AnswerReceipt acknowledges an accepted submission.
type AnswerReceipt struct {
	Correct      bool    `json:"isCorrect"`
	Points       int     `json:"points"`
	ResponseTime float64 `json:"responseTime"`
}

// ParticipantOutcome is the per-participant result delivered after a
// question ends. Answered is false when the participant never submitted.
type ParticipantOutcome struct {
	ParticipantID string       `json:"participantId"`
	ConnID        string       `json:"-"`
	Nickname      string       `json:"nickname"`
	OptionID      string       `json:"yourAnswer,omitempty"`
	Answered      bool         `json:"answered"`
	Correct       bool         `json:"isCorrect"`
	Points        int          `json:"points"`
	TotalScore    int          `json:"totalScore"`
	Rank          PersonalRank `json:"rank"`
}

// QuestionEndEvent carries everything the broadcast layer needs when a
// question ends, whether manually or by the auto-end timer.
type QuestionEndEvent struct {
	Results     QuestionResults
	Leaderboard Leaderboard
	Outcomes    []ParticipantOutcome
}

// ActiveQuestionView is the client question plus live remaining time.
type ActiveQuestionView struct {
	ClientQuestion
	RemainingTime int `json:"remainingTime"`
}

// GameState is the full session view sent to new connections.
type GameState struct {
	SessionID             string              `json:"sessionId"`
	Status                Status              `json:"status"`
	CurrentQuestionNumber int                 `json:"currentQuestionNumber"`
	TotalQuestions        int                 `json:"totalQuestions"`
	ParticipantCount      int                 `json:"participantCount"`
	CurrentQuestion       *ActiveQuestionView `json:"currentQuestion,omitempty"`
}
