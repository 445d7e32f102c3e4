package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestScoreboardCacheWritesThrough(t *testing.T) {
	mr, client := startRedis(t)
	backing := memory.NewScoreboardStore()
	cache := NewScoreboardCache(client, backing, time.Minute)

	if err := cache.CreateScoreboard(context.Background(), sampleRecord("sb-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(backing.Scoreboards("quiz-1")) != 1 {
		t.Fatalf("expected record in backing store")
	}
	if !mr.Exists("scoreboard:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("scoreboard:quiz-1"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected ttl within jitter range, got %v", ttl)
	}
}

func TestScoreboardCacheReadsThrough(t *testing.T) {
	_, client := startRedis(t)
	backing := &countingStore{ScoreboardStore: memory.NewScoreboardStore()}
	_ = backing.ScoreboardStore.CreateScoreboard(context.Background(), sampleRecord("sb-1"))
	cache := NewScoreboardCache(client, backing, time.Minute)

	first, err := cache.LatestScoreboard(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	second, err := cache.LatestScoreboard(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("latest 2: %v", err)
	}
	if backing.loads() != 1 {
		t.Fatalf("expected cache hit on second read, backing loads=%d", backing.loads())
	}
	if first.ID != "sb-1" || second.ID != "sb-1" || len(second.ParticipantScores) != 2 {
		t.Fatalf("unexpected records: %+v / %+v", first, second)
	}
	if !second.EndedAt.Equal(first.EndedAt) {
		t.Fatalf("cached record lost its timestamp")
	}
}

func TestScoreboardCacheMissPropagatesNotFound(t *testing.T) {
	_, client := startRedis(t)
	cache := NewScoreboardCache(client, memory.NewScoreboardStore(), time.Minute)

	if _, err := cache.LatestScoreboard(context.Background(), "nope"); !errors.Is(err, domain.ErrScoreboardNotFound) {
		t.Fatalf("expected ErrScoreboardNotFound, got %v", err)
	}
}

type countingStore struct {
	*memory.ScoreboardStore
	mu    sync.Mutex
	calls int
}

func (s *countingStore) LatestScoreboard(ctx context.Context, quizID string) (domain.ScoreboardRecord, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.ScoreboardStore.LatestScoreboard(ctx, quizID)
}

func (s *countingStore) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleRecord(id string) domain.ScoreboardRecord {
	return domain.NewScoreboardRecord(id, "quiz-1", domain.EndReasonCreator, time.Unix(1700000000, 0).UTC(), []domain.LeaderboardEntry{
		{UserID: "bob", Username: "Bob", Score: 15, CorrectAnswersCount: 1, Rank: 1},
		{UserID: "alice", Username: "Alice", Score: 10, CorrectAnswersCount: 1, Rank: 2},
	})
}
