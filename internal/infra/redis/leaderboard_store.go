package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"live-trivia-service/internal/domain"
)

// LeaderboardStore publishes leaderboard snapshots to Redis so external
// readers (monitoring, replay of the final standings) can fetch them without
// touching the coordinator. Writes are best effort.
type LeaderboardStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardStore(client *redis.Client, ttl time.Duration) *LeaderboardStore {
	return &LeaderboardStore{client: client, ttl: ttl}
}

// Publish stores the snapshot under a per-session key.
func (s *LeaderboardStore) Publish(ctx context.Context, sessionID string, lb domain.Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err()
}

// Fetch returns the last published snapshot for a session.
func (s *LeaderboardStore) Fetch(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		return domain.Leaderboard{}, err
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return domain.Leaderboard{}, err
	}
	return lb, nil
}

func (s *LeaderboardStore) key(sessionID string) string {
	return "trivia:leaderboard:" + sessionID
}
