package game

import (
	"sort"
	"time"

	"live-trivia-service/internal/domain"
)

// LeaderboardEngine recomputes ranks with deterministic tie-breaking and
// caches the last snapshot. Callers needing a fresh view trigger Recompute
// explicitly; stale reads between triggers are fine.
type LeaderboardEngine struct {
	topN  int
	cache *domain.Leaderboard
}

func NewLeaderboardEngine(topN int) *LeaderboardEngine {
	return &LeaderboardEngine{topN: topN}
}

// Recompute sorts participants by score desc, average response time asc,
// correct count desc, then join time asc, assigns 1-based ranks (stashing
// the previous rank for the rank-delta label), and caches the top-N view.
func (e *LeaderboardEngine) Recompute(participants []*Participant, now time.Time) domain.Leaderboard {
	sorted := make([]*Participant, len(participants))
	copy(sorted, participants)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.AvgResponseTime != b.AvgResponseTime {
			return a.AvgResponseTime < b.AvgResponseTime
		}
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})

	for i, p := range sorted {
		p.PreviousRank = p.Rank
		p.Rank = i + 1
	}

	top := e.topN
	if top > len(sorted) {
		top = len(sorted)
	}
	entries := make([]domain.LeaderboardEntry, 0, top)
	for _, p := range sorted[:top] {
		entries = append(entries, p.LeaderboardEntry())
	}

	lb := domain.Leaderboard{
		Entries:           entries,
		TotalParticipants: len(participants),
		UpdatedAt:         now,
	}
	e.cache = &lb
	return lb
}

// Snapshot returns the cached leaderboard, recomputing once if none exists.
func (e *LeaderboardEngine) Snapshot(participants []*Participant, now time.Time) domain.Leaderboard {
	if e.cache == nil {
		return e.Recompute(participants, now)
	}
	return *e.cache
}

// Invalidate drops the cache.
func (e *LeaderboardEngine) Invalidate() {
	e.cache = nil
}
