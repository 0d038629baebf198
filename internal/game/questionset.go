package game

import (
	"fmt"
	"strings"

	"live-trivia-service/internal/domain"
)

const (
	maxQuestionsPerSet     = 10
	optionsPerQuestion     = 4
	defaultQuestionSeconds = 30 // applied when a record omits its limit
)

// QuestionSet is an ordered, index-addressable sequence of questions.
type QuestionSet struct {
	questions []*Question
}

// NewQuestionSet builds a set from loaded records without upload validation;
// records missing a time limit get the default.
func NewQuestionSet(recs []domain.QuestionRecord) *QuestionSet {
	s := &QuestionSet{}
	s.build(recs)
	return s
}

func (s *QuestionSet) build(recs []domain.QuestionRecord) {
	s.questions = make([]*Question, 0, len(recs))
	for i, rec := range recs {
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("q%d", i+1)
		}
		if rec.TimeLimit <= 0 {
			rec.TimeLimit = defaultQuestionSeconds
		}
		s.questions = append(s.questions, NewQuestion(rec))
	}
}

func (s *QuestionSet) Len() int {
	return len(s.questions)
}

// At returns the question at index, or nil when out of range.
func (s *QuestionSet) At(i int) *Question {
	if i < 0 || i >= len(s.questions) {
		return nil
	}
	return s.questions[i]
}

// Replace validates an uploaded question set and swaps it in wholesale. On
// any failure nothing is replaced and the error carries the 1-based index.
func (s *QuestionSet) Replace(recs []domain.QuestionRecord) error {
	if err := ValidateQuestionRecords(recs); err != nil {
		return err
	}
	s.build(recs)
	return nil
}

// ValidateQuestionRecords enforces the upload constraints: non-empty set of
// at most 10 questions, each with text, exactly 4 non-empty options with
// unique ids, and a correct answer naming one of them.
func ValidateQuestionRecords(recs []domain.QuestionRecord) error {
	if len(recs) == 0 {
		return &domain.ValidationError{Reason: "questions must be a non-empty array"}
	}
	if len(recs) > maxQuestionsPerSet {
		return &domain.ValidationError{Reason: fmt.Sprintf("maximum %d questions allowed", maxQuestionsPerSet)}
	}

	for i, rec := range recs {
		idx := i + 1
		if strings.TrimSpace(rec.Text) == "" {
			return &domain.ValidationError{Index: idx, Reason: "missing question text"}
		}
		if rec.CorrectAnswer == "" {
			return &domain.ValidationError{Index: idx, Reason: "missing correct answer"}
		}
		if len(rec.Options) != optionsPerQuestion {
			return &domain.ValidationError{Index: idx, Reason: fmt.Sprintf("must have exactly %d options", optionsPerQuestion)}
		}

		seen := make(map[string]bool, len(rec.Options))
		correctFound := false
		for _, opt := range rec.Options {
			if strings.TrimSpace(opt.Text) == "" {
				return &domain.ValidationError{Index: idx, Reason: "all options must have text"}
			}
			if seen[opt.ID] {
				return &domain.ValidationError{Index: idx, Reason: "duplicate option id"}
			}
			seen[opt.ID] = true
			if opt.ID == rec.CorrectAnswer {
				correctFound = true
			}
		}
		if !correctFound {
			return &domain.ValidationError{Index: idx, Reason: "invalid correct answer"}
		}
	}
	return nil
}
