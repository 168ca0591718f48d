package memory

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// StatsRepository caches per-user stats with TTL to avoid repeated archive scans.
type StatsRepository struct {
	loader app.StatsLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedStats
	// gen is bumped by Invalidate; a fill started under an older generation is not cached.
	gen map[string]uint64
}

type cachedStats struct {
	stats     domain.Stats
	expiresAt time.Time
}

func NewStatsRepository(loader app.StatsLoader, ttl time.Duration) *StatsRepository {
	return &StatsRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedStats),
		gen:    make(map[string]uint64),
	}
}

func (r *StatsRepository) GetStats(ctx context.Context, userID string) (domain.Stats, error) {
	if stats, ok := r.lookup(userID, r.clock()); ok {
		return stats, nil
	}

	result, err, _ := r.sf.Do(userID, func() (interface{}, error) {
		now := r.clock()
		if stats, ok := r.lookup(userID, now); ok {
			return stats, nil
		}

		r.mu.RLock()
		gen := r.gen[userID]
		r.mu.RUnlock()

		stats, err := r.loader.LoadStats(ctx, userID)
		if err != nil {
			return domain.Stats{}, err
		}

		r.mu.Lock()
		if r.gen[userID] == gen {
			r.cache[userID] = cachedStats{
				stats:     stats,
				expiresAt: now.Add(ttlWithJitter(r.ttl)),
			}
		}
		r.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return result.(domain.Stats), nil
}

// Invalidate drops the cached stats of userID.
func (r *StatsRepository) Invalidate(_ context.Context, userID string) error {
	r.mu.Lock()
	delete(r.cache, userID)
	r.gen[userID]++
	r.mu.Unlock()
	r.sf.Forget(userID)
	return nil
}

func (r *StatsRepository) lookup(userID string, now time.Time) (domain.Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[userID]; ok && entry.expiresAt.After(now) {
		return entry.stats, true
	}
	return domain.Stats{}, false
}

func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	return ttl + time.Duration(rand.Int64N(int64(ttl)/10+1))
}
