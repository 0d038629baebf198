package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNicknameTaken is returned when a nickname is already registered (case-insensitive).
	ErrNicknameTaken = errors.New("nickname already taken - try adding a number")
	// ErrGameFull is returned when the participant ceiling has been reached.
	ErrGameFull = errors.New("game is full")
	// ErrParticipantNotFound is returned when a connection has no registered participant.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrInvalidQuestion is returned when a submission targets anything but the active question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrAlreadyAnswered is returned on a duplicate submission for the same question.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrQuestionLocked is returned when answers have been locked.
	ErrQuestionLocked = errors.New("question locked")
	// ErrQuestionExpired is returned when the question's time window has passed.
	ErrQuestionExpired = errors.New("time expired")
	// ErrNoActiveQuestion is returned when ending with no question active.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrNoMoreQuestions is returned when starting past the end of the question set.
	ErrNoMoreQuestions = errors.New("no more questions")
	// ErrQuestionSetNotFound indicates question content could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
)

// ValidationError reports a rejected nickname or question payload. Index is
// the 1-based question index for payload failures, 0 otherwise.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("question %d: %s", e.Index, e.Reason)
	}
	return e.Reason
}
