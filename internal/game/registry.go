package game

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"live-trivia-service/internal/domain"
)

var nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// Registry owns the set of active participants and their three indexes:
// by id, by connection, and by lowercased nickname. It is not internally
// locked; the coordinator serializes all access.
type Registry struct {
	max         int
	minNickname int
	maxNickname int

	byID   map[string]*Participant
	byConn map[string]*Participant
	byNick map[string]*Participant
}

func NewRegistry(maxParticipants, minNickname, maxNickname int) *Registry {
	return &Registry{
		max:         maxParticipants,
		minNickname: minNickname,
		maxNickname: maxNickname,
		byID:        make(map[string]*Participant),
		byConn:      make(map[string]*Participant),
		byNick:      make(map[string]*Participant),
	}
}

// Add validates the nickname, enforces the participant ceiling, and indexes
// a new participant. The nickname is trimmed and inner whitespace collapsed
// before validation.
func (r *Registry) Add(nickname, connID string, now time.Time) (*Participant, error) {
	clean, err := r.validateNickname(nickname)
	if err != nil {
		return nil, err
	}
	if len(r.byID) >= r.max {
		return nil, domain.ErrGameFull
	}

	p := newParticipant(clean, connID, now)
	r.byID[p.ID] = p
	r.byConn[connID] = p
	r.byNick[strings.ToLower(clean)] = p
	return p, nil
}

func (r *Registry) validateNickname(nickname string) (string, error) {
	clean := strings.Join(strings.Fields(nickname), " ")
	if len(clean) < r.minNickname {
		return "", &domain.ValidationError{Reason: fmt.Sprintf("nickname must be at least %d characters", r.minNickname)}
	}
	if len(clean) > r.maxNickname {
		return "", &domain.ValidationError{Reason: fmt.Sprintf("nickname must be at most %d characters", r.maxNickname)}
	}
	if !nicknamePattern.MatchString(clean) {
		return "", &domain.ValidationError{Reason: "nickname can only contain letters, numbers, and spaces"}
	}
	if _, taken := r.byNick[strings.ToLower(clean)]; taken {
		return "", domain.ErrNicknameTaken
	}
	return clean, nil
}

// RemoveByConn drops a participant from all three indexes. Idempotent.
func (r *Registry) RemoveByConn(connID string) *Participant {
	p, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	delete(r.byID, p.ID)
	delete(r.byConn, connID)
	delete(r.byNick, strings.ToLower(p.Nickname))
	return p
}

func (r *Registry) ByConn(connID string) (*Participant, bool) {
	p, ok := r.byConn[connID]
	return p, ok
}

func (r *Registry) ByID(id string) (*Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *Registry) Count() int {
	return len(r.byID)
}

// All returns the participants in unspecified order.
func (r *Registry) All() []*Participant {
	out := make([]*Participant, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// SweepStale removes and returns every participant whose last heartbeat is
// older than threshold.
func (r *Registry) SweepStale(now time.Time, threshold time.Duration) []*Participant {
	var removed []*Participant
	for _, p := range r.byID {
		if now.Sub(p.LastHeartbeat) > threshold {
			removed = append(removed, p)
		}
	}
	for _, p := range removed {
		r.RemoveByConn(p.ConnID)
	}
	return removed
}

// Clear removes every participant.
func (r *Registry) Clear() {
	r.byID = make(map[string]*Participant)
	r.byConn = make(map[string]*Participant)
	r.byNick = make(map[string]*Participant)
}
