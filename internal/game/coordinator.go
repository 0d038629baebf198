package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"live-trivia-service/internal/domain"
)

// Settings are the game tunables; see DefaultSettings for the reference
// values.
type Settings struct {
	MaxParticipants    int
	MinNicknameLength  int
	MaxNicknameLength  int
	BasePoints         int
	MinSpeedMultiplier float64
	MaxSpeedMultiplier float64
	IncorrectPoints    int
	LeaderboardTop     int
	StaleAfter         time.Duration
	SweepEvery         time.Duration
	// Clue reveal offsets as fractions of the question's time limit. The
	// auto-end timer always fires at the full limit.
	ClueTwoFraction   float64
	ClueThreeFraction float64
}

func DefaultSettings() Settings {
	return Settings{
		MaxParticipants:    300,
		MinNicknameLength:  3,
		MaxNicknameLength:  15,
		BasePoints:         1000,
		MinSpeedMultiplier: 0.5,
		MaxSpeedMultiplier: 1.0,
		IncorrectPoints:    0,
		LeaderboardTop:     10,
		StaleAfter:         90 * time.Second,
		SweepEvery:         60 * time.Second,
		ClueTwoFraction:    0.4,
		ClueThreeFraction:  0.73,
	}
}

// Broadcaster receives the coordinator's timer-driven side effects. The
// coordinator never holds its lock while calling out.
type Broadcaster interface {
	ClueRevealed(questionNumber, stage int, clue string)
	QuestionEnded(ev domain.QuestionEndEvent)
	ParticipantsSwept(removed []domain.ParticipantView, remaining int)
}

type noopBroadcaster struct{}

func (noopBroadcaster) ClueRevealed(int, int, string)                   {}
func (noopBroadcaster) QuestionEnded(domain.QuestionEndEvent)           {}
func (noopBroadcaster) ParticipantsSwept([]domain.ParticipantView, int) {}

// Coordinator is the single authoritative owner of game state. Every
// operation, timer callbacks included, serializes through its mutex; a
// rejected operation leaves state unchanged.
type Coordinator struct {
	mu sync.Mutex

	settings  Settings
	clock     func() time.Time
	scheduler Scheduler
	notify    Broadcaster

	sessionID string
	status    domain.Status

	registry    *Registry
	questions   *QuestionSet
	seed        []domain.QuestionRecord
	scoring     ScoringPolicy
	leaderboard *LeaderboardEngine

	currentIndex int
	current      *Question

	cancelClue2 func()
	cancelClue3 func()
	cancelEnd   func()
}

func New(settings Settings, seed []domain.QuestionRecord, scheduler Scheduler, notify Broadcaster) *Coordinator {
	return NewWithClock(settings, seed, scheduler, notify, time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(settings Settings, seed []domain.QuestionRecord, scheduler Scheduler, notify Broadcaster, now func() time.Time) *Coordinator {
	if notify == nil {
		notify = noopBroadcaster{}
	}
	return &Coordinator{
		settings:  settings,
		clock:     now,
		scheduler: scheduler,
		notify:    notify,
		sessionID: "trivia-" + uuid.NewString(),
		status:    domain.StatusWaiting,
		registry:  NewRegistry(settings.MaxParticipants, settings.MinNicknameLength, settings.MaxNicknameLength),
		questions: NewQuestionSet(seed),
		seed:      seed,
		scoring: ScoringPolicy{
			BasePoints:      settings.BasePoints,
			MinMultiplier:   settings.MinSpeedMultiplier,
			MaxMultiplier:   settings.MaxSpeedMultiplier,
			IncorrectPoints: settings.IncorrectPoints,
		},
		leaderboard:  NewLeaderboardEngine(settings.LeaderboardTop),
		currentIndex: -1,
	}
}

// Join registers a new participant.
func (c *Coordinator) Join(nickname, connID string) (domain.ParticipantView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.registry.Add(nickname, connID, c.clock())
	if err != nil {
		return domain.ParticipantView{}, err
	}
	log.Printf("participant joined: %s (%s)", p.Nickname, p.ID)
	return p.View(), nil
}

// Leave removes the participant bound to a connection, if any. Idempotent.
func (c *Coordinator) Leave(connID string) (domain.ParticipantView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.registry.RemoveByConn(connID)
	if p == nil {
		return domain.ParticipantView{}, false
	}
	log.Printf("participant left: %s", p.Nickname)
	return p.View(), true
}

// Heartbeat refreshes a participant's last-activity timestamp.
func (c *Coordinator) Heartbeat(connID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.ByConn(connID)
	if !ok {
		return false
	}
	p.touch(c.clock())
	return true
}

// StartQuestion activates the question at index and schedules the clue and
// auto-end timers. At most one question is active at a time: any timers
// from a previous activation are cancelled first.
func (c *Coordinator) StartQuestion(index int) (domain.StartedQuestion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.questions.At(index)
	if q == nil {
		return domain.StartedQuestion{}, domain.ErrNoMoreQuestions
	}

	c.cancelTimersLocked()

	now := c.clock()
	c.currentIndex = index
	c.current = q
	q.Start(now)
	c.status = domain.StatusActive

	limit := time.Duration(q.TimeLimit) * time.Second
	number := index + 1

	c.cancelClue2 = c.scheduleClueLocked(q, number, 2, fraction(limit, c.settings.ClueTwoFraction))
	c.cancelClue3 = c.scheduleClueLocked(q, number, 3, fraction(limit, c.settings.ClueThreeFraction))
	c.cancelEnd = c.scheduler.Schedule(limit, func() { c.autoEnd(q) })

	log.Printf("started question %d: %s", number, q.Text)

	return domain.StartedQuestion{
		Question:       q.ClientView(),
		QuestionNumber: number,
		TotalQuestions: c.questions.Len(),
	}, nil
}

func fraction(limit time.Duration, f float64) time.Duration {
	return time.Duration(float64(limit) * f)
}

// scheduleClueLocked defers a clue reveal. The callback re-checks that the
// same question is still active; cancellation plus this check keeps a stale
// timer from announcing a clue for a finished question.
func (c *Coordinator) scheduleClueLocked(q *Question, number, stage int, after time.Duration) func() {
	clue, ok := q.Clue(stage)
	if !ok {
		return nil
	}
	return c.scheduler.Schedule(after, func() {
		c.mu.Lock()
		live := c.current == q && !q.locked
		c.mu.Unlock()
		if live {
			log.Printf("revealing clue %d for question %d", stage, number)
			c.notify.ClueRevealed(number, stage, clue)
		}
	})
}

// autoEnd is the auto-end timer callback; it performs the same transition
// as EndQuestion and hands the event to the broadcaster.
func (c *Coordinator) autoEnd(q *Question) {
	c.mu.Lock()
	if c.current != q || q.locked {
		c.mu.Unlock()
		return
	}
	log.Printf("auto-ending question %d", c.currentIndex+1)
	ev := c.endQuestionLocked()
	c.mu.Unlock()

	c.notify.QuestionEnded(ev)
}

// EndQuestion locks the active question, cancels pending timers, recomputes
// the leaderboard, and returns results plus per-participant outcomes.
func (c *Coordinator) EndQuestion() (domain.QuestionEndEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return domain.QuestionEndEvent{}, domain.ErrNoActiveQuestion
	}
	log.Printf("ended question %d", c.currentIndex+1)
	return c.endQuestionLocked(), nil
}

func (c *Coordinator) endQuestionLocked() domain.QuestionEndEvent {
	q := c.current
	q.End()
	c.status = domain.StatusWaiting
	c.cancelTimersLocked()

	lb := c.leaderboard.Recompute(c.registry.All(), c.clock())

	participants := c.registry.All()
	outcomes := make([]domain.ParticipantOutcome, 0, len(participants))
	for _, p := range participants {
		outcome := domain.ParticipantOutcome{
			ParticipantID: p.ID,
			ConnID:        p.ConnID,
			Nickname:      p.Nickname,
			TotalScore:    p.TotalScore,
			Rank: domain.PersonalRank{
				Rank:              p.Rank,
				TotalScore:        p.TotalScore,
				CorrectCount:      p.CorrectCount,
				TotalParticipants: len(participants),
			},
		}
		if a, ok := p.AnswerFor(q.ID); ok {
			outcome.Answered = true
			outcome.OptionID = a.OptionID
			outcome.Correct = a.Correct
			outcome.Points = a.Points
		}
		outcomes = append(outcomes, outcome)
	}

	return domain.QuestionEndEvent{
		Results:     q.ResultsView(),
		Leaderboard: lb,
		Outcomes:    outcomes,
	}
}

func (c *Coordinator) cancelTimersLocked() {
	if c.cancelClue2 != nil {
		c.cancelClue2()
		c.cancelClue2 = nil
	}
	if c.cancelClue3 != nil {
		c.cancelClue3()
		c.cancelClue3 = nil
	}
	if c.cancelEnd != nil {
		c.cancelEnd()
		c.cancelEnd = nil
	}
}

// SubmitAnswer validates and scores one submission. The participant's own
// answer history is the authoritative duplicate guard; the question-level
// check inside RecordAnswer backs it up.
func (c *Coordinator) SubmitAnswer(connID, questionID, optionID string) (domain.AnswerReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.ByConn(connID)
	if !ok {
		return domain.AnswerReceipt{}, domain.ErrParticipantNotFound
	}
	q := c.current
	if q == nil || q.ID != questionID {
		return domain.AnswerReceipt{}, domain.ErrInvalidQuestion
	}
	if p.HasAnswered(questionID) {
		return domain.AnswerReceipt{}, domain.ErrAlreadyAnswered
	}

	now := c.clock()
	if err := q.RecordAnswer(p.ID, optionID, now); err != nil {
		return domain.AnswerReceipt{}, err
	}

	responseTime := now.Sub(q.StartedAt()).Seconds()
	remaining := float64(q.TimeLimit) - responseTime
	correct := q.IsCorrect(optionID)
	points := c.scoring.Points(correct, remaining, float64(q.TimeLimit))

	p.addAnswer(questionID, optionID, correct, responseTime, points, now)

	log.Printf("answer from %s: %s (correct=%v, %.2fs, %d pts)", p.Nickname, optionID, correct, responseTime, points)

	return domain.AnswerReceipt{
		Correct:      correct,
		Points:       points,
		ResponseTime: responseTime,
	}, nil
}

// Participant returns the view of the participant bound to a connection.
func (c *Coordinator) Participant(connID string) (domain.ParticipantView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.ByConn(connID)
	if !ok {
		return domain.ParticipantView{}, false
	}
	return p.View(), true
}

// Leaderboard returns the cached snapshot, computing one if none exists.
func (c *Coordinator) Leaderboard() domain.Leaderboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderboard.Snapshot(c.registry.All(), c.clock())
}

// ParticipantRank returns a participant's personal standing.
func (c *Coordinator) ParticipantRank(participantID string) (domain.PersonalRank, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.ByID(participantID)
	if !ok {
		return domain.PersonalRank{}, false
	}
	return domain.PersonalRank{
		Rank:              p.Rank,
		TotalScore:        p.TotalScore,
		CorrectCount:      p.CorrectCount,
		TotalParticipants: c.registry.Count(),
	}, true
}

// ReplaceQuestions swaps in an uploaded question set after validation.
func (c *Coordinator) ReplaceQuestions(recs []domain.QuestionRecord) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.questions.Replace(recs); err != nil {
		return 0, err
	}
	log.Printf("loaded %d custom questions", len(recs))
	return len(recs), nil
}

// QuestionRecords returns the current set in record form (host dashboard).
func (c *Coordinator) QuestionRecords() []domain.QuestionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	recs := make([]domain.QuestionRecord, 0, c.questions.Len())
	for i := 0; i < c.questions.Len(); i++ {
		q := c.questions.At(i)
		recs = append(recs, domain.QuestionRecord{
			ID:            q.ID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			TimeLimit:     q.TimeLimit,
			Clues:         q.Clues,
		})
	}
	return recs
}

// CorrectAnswer exposes a question's reveal data for the intermission flow.
func (c *Coordinator) CorrectAnswer(index int) (domain.ClientQuestion, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.questions.At(index)
	if q == nil {
		return domain.ClientQuestion{}, "", false
	}
	return q.ClientView(), q.CorrectAnswer, true
}

// GameState returns the full session view for new connections.
func (c *Coordinator) GameState() domain.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := domain.GameState{
		SessionID:             c.sessionID,
		Status:                c.status,
		CurrentQuestionNumber: c.currentIndex + 1,
		TotalQuestions:        c.questions.Len(),
		ParticipantCount:      c.registry.Count(),
	}
	if c.current != nil {
		state.CurrentQuestion = &domain.ActiveQuestionView{
			ClientQuestion: c.current.ClientView(),
			RemainingTime:  c.current.RemainingSeconds(c.clock()),
		}
	}
	return state
}

// ParticipantCount returns the number of registered participants.
func (c *Coordinator) ParticipantCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Count()
}

// Status returns the session status.
func (c *Coordinator) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PauseGame cancels pending timers and pauses the session.
func (c *Coordinator) PauseGame() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelTimersLocked()
	c.status = domain.StatusPaused
	log.Printf("game paused")
}

// EndGame finishes the session and returns the final leaderboard.
func (c *Coordinator) EndGame() domain.Leaderboard {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelTimersLocked()
	c.status = domain.StatusEnded
	c.currentIndex = -1
	c.current = nil
	log.Printf("game ended")
	return c.leaderboard.Recompute(c.registry.All(), c.clock())
}

// ResetGame clears all participants and restores the seed question set.
func (c *Coordinator) ResetGame() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelTimersLocked()
	c.status = domain.StatusWaiting
	c.currentIndex = -1
	c.current = nil
	c.registry.Clear()
	c.leaderboard.Invalidate()
	c.questions = NewQuestionSet(c.seed)
	log.Printf("game reset")
}

// SweepStale removes participants whose heartbeat is older than the stale
// threshold and returns their views.
func (c *Coordinator) SweepStale() []domain.ParticipantView {
	c.mu.Lock()
	removed := c.registry.SweepStale(c.clock(), c.settings.StaleAfter)
	views := make([]domain.ParticipantView, 0, len(removed))
	for _, p := range removed {
		log.Printf("cleaning up stale participant: %s", p.Nickname)
		views = append(views, p.View())
	}
	remaining := c.registry.Count()
	c.mu.Unlock()

	if len(views) > 0 {
		c.notify.ParticipantsSwept(views, remaining)
	}
	return views
}

// RunSweeper periodically sweeps stale participants until ctx is done.
func (c *Coordinator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.settings.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.SweepStale()
		case <-ctx.Done():
			return
		}
	}
}
