package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ScoreboardCache fronts an app.ScoreboardStore with Redis.
// Writes go through to the backing store first and then refresh the cache:
//
//	SET scoreboard:{quizID} <record json> EX ttl
//
// Reads are served from Redis and fall back to the backing store on a miss,
// with concurrent misses for the same quiz collapsed into one load.
type ScoreboardCache struct {
	client  *redis.Client
	backing app.ScoreboardStore
	ttl     time.Duration
	sf      singleflight.Group
}

func NewScoreboardCache(client *redis.Client, backing app.ScoreboardStore, ttl time.Duration) *ScoreboardCache {
	return &ScoreboardCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
	}
}

func (c *ScoreboardCache) CreateScoreboard(ctx context.Context, record domain.ScoreboardRecord) error {
	if err := c.backing.CreateScoreboard(ctx, record); err != nil {
		return err
	}
	// best-effort; a stale cache entry is replaced on the next miss after TTL
	c.fill(ctx, record)
	return nil
}

func (c *ScoreboardCache) LatestScoreboard(ctx context.Context, quizID string) (domain.ScoreboardRecord, error) {
	if record, ok := c.cached(ctx, quizID); ok {
		return record, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if record, ok := c.cached(ctx, quizID); ok {
			return record, nil
		}
		record, err := c.backing.LatestScoreboard(ctx, quizID)
		if err != nil {
			return domain.ScoreboardRecord{}, err
		}
		c.fill(ctx, record)
		return record, nil
	})
	if err != nil {
		return domain.ScoreboardRecord{}, err
	}
	return result.(domain.ScoreboardRecord), nil
}

func (c *ScoreboardCache) cached(ctx context.Context, quizID string) (domain.ScoreboardRecord, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return domain.ScoreboardRecord{}, false
	}
	var record domain.ScoreboardRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.ScoreboardRecord{}, false
	}
	return record, true
}

func (c *ScoreboardCache) fill(ctx context.Context, record domain.ScoreboardRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(record.QuizID), data, c.ttlWithJitter()).Err()
}

func (c *ScoreboardCache) key(quizID string) string {
	return "scoreboard:" + quizID
}

func (c *ScoreboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
