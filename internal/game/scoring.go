package game

import "math"

// ScoringPolicy maps (correctness, remaining time) to points. The multiplier
// scales linearly from MinMultiplier at zero remaining time to MaxMultiplier
// at a full time limit remaining.
type ScoringPolicy struct {
	BasePoints      int
	MinMultiplier   float64
	MaxMultiplier   float64
	IncorrectPoints int
}

// Points computes the score for one submission. The remaining-time input is
// clamped to [0, timeLimit]: a submission racing the expiry boundary can
// arrive with slightly negative remaining time and must not score below the
// minimum multiplier.
func (p ScoringPolicy) Points(correct bool, remainingSeconds, timeLimitSeconds float64) int {
	if !correct {
		return p.IncorrectPoints
	}
	if timeLimitSeconds <= 0 {
		return int(math.Round(float64(p.BasePoints) * p.MinMultiplier))
	}
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	if remainingSeconds > timeLimitSeconds {
		remainingSeconds = timeLimitSeconds
	}

	multiplier := p.MinMultiplier + (p.MaxMultiplier-p.MinMultiplier)*(remainingSeconds/timeLimitSeconds)
	return int(math.Round(float64(p.BasePoints) * multiplier))
}
