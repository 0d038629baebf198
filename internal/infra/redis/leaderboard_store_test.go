package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"live-trivia-service/internal/domain"
)

func TestLeaderboardStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewLeaderboardStore(client, time.Minute)

	lb := domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{
			{Rank: 1, Nickname: "Alice", Score: 917, CorrectCount: 1, Change: "NEW"},
			{Rank: 2, Nickname: "Bob", Score: 583, CorrectCount: 1, Change: "NEW"},
		},
		TotalParticipants: 2,
	}
	if err := store.Publish(context.Background(), "trivia-abc", lb); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !mr.Exists("trivia:leaderboard:trivia-abc") {
		t.Fatalf("expected redis key to be set")
	}

	got, err := store.Fetch(context.Background(), "trivia-abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.TotalParticipants != 2 || len(got.Entries) != 2 {
		t.Fatalf("fetched %+v", got)
	}
	if got.Entries[0].Nickname != "Alice" || got.Entries[0].Score != 917 {
		t.Fatalf("first entry = %+v", got.Entries[0])
	}
}

func TestLeaderboardStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewLeaderboardStore(client, time.Minute)

	if err := store.Publish(context.Background(), "trivia-abc", domain.Leaderboard{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Fetch(context.Background(), "trivia-abc"); err == nil {
		t.Fatalf("expected a miss after expiry")
	}
}
