package redis

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// StatsRepository caches user stats in Redis (hash per user) and falls back to a loader on cache miss.
// Stats are stored as: HSET trivia:stats:{userID} total {n} score {avg} precision {avg} time {avg} easy {n} medium {n} hard {n}
type StatsRepository struct {
	client *redis.Client
	loader app.StatsLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewStatsRepository(client *redis.Client, loader app.StatsLoader, ttl time.Duration) *StatsRepository {
	return &StatsRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *StatsRepository) GetStats(ctx context.Context, userID string) (domain.Stats, error) {
	key := r.key(userID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return statsFromCache(userID, fields), nil
	}

	result, err, _ := r.sf.Do(userID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return statsFromCache(userID, fields), nil
		}

		gen, err := r.generation(ctx, r.client, userID)
		if err != nil {
			gen = -1
		}

		stats, err := r.loader.LoadStats(ctx, userID)
		if err != nil {
			return domain.Stats{}, err
		}
		if gen >= 0 {
			_ = r.store(ctx, userID, gen, stats)
		}

		return stats, nil
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return result.(domain.Stats), nil
}

// store writes stats only if no Invalidate bumped the generation since the fill began.
func (r *StatsRepository) store(ctx context.Context, userID string, gen int64, stats domain.Stats) error {
	key := r.key(userID)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.generation(ctx, tx, userID)
		if err != nil || current != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"total":     stats.TotalAttempts,
				"score":     stats.Averages.Score,
				"precision": stats.Averages.Precision,
				"time":      stats.Averages.Time,
				"easy":      stats.AttemptsByDifficulty.Easy,
				"medium":    stats.AttemptsByDifficulty.Medium,
				"hard":      stats.AttemptsByDifficulty.Hard,
			})
			if ttl := ttlWithJitter(r.ttl); ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	}, r.genKey(userID))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *StatsRepository) generation(ctx context.Context, c getter, userID string) (int64, error) {
	gen, err := c.Get(ctx, r.genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *StatsRepository) Invalidate(ctx context.Context, userID string) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, r.genKey(userID))
	pipe.Del(ctx, r.key(userID))
	_, err := pipe.Exec(ctx)
	r.sf.Forget(userID)
	return err
}

func (r *StatsRepository) key(userID string) string {
	return "trivia:stats:" + userID
}

func (r *StatsRepository) genKey(userID string) string {
	return "trivia:stats:gen:" + userID
}

func statsFromCache(userID string, fields map[string]string) domain.Stats {
	n := func(name string) int {
		v, _ := strconv.Atoi(fields[name])
		return v
	}
	return domain.Stats{
		UserID:        userID,
		TotalAttempts: n("total"),
		Averages: domain.StatsAverages{
			Score:     n("score"),
			Precision: n("precision"),
			Time:      n("time"),
		},
		AttemptsByDifficulty: domain.DifficultyCounts{
			Easy:   n("easy"),
			Medium: n("medium"),
			Hard:   n("hard"),
		},
	}
}

func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(rand.Int64N(int64(ttl)/10+1))
}
