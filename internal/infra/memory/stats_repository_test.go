package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

func TestStatsRepositoryCaches(t *testing.T) {
	ctx := context.Background()
	attempts := NewAttemptStore()
	loader := &countingLoader{inner: attempts}
	repo := NewStatsRepository(loader, time.Minute)

	if err := attempts.RecordAttempt(ctx, domain.Attempt{UserID: "u1", Difficulty: domain.DifficultyEasy, Percentage: 80}); err != nil {
		t.Fatalf("record: %v", err)
	}

	stats, err := repo.GetStats(ctx, "u1")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.Averages.Score != 80 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := repo.GetStats(ctx, "u1"); err != nil {
		t.Fatalf("get stats 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestStatsRepositoryInvalidate(t *testing.T) {
	ctx := context.Background()
	attempts := NewAttemptStore()
	loader := &countingLoader{inner: attempts}
	repo := NewStatsRepository(loader, time.Hour)

	if _, err := repo.GetStats(ctx, "u1"); err != nil {
		t.Fatalf("get stats: %v", err)
	}
	_ = attempts.RecordAttempt(ctx, domain.Attempt{UserID: "u1", Difficulty: domain.DifficultyHard, Percentage: 50})
	if err := repo.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	stats, err := repo.GetStats(ctx, "u1")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.AttemptsByDifficulty.Hard != 1 {
		t.Fatalf("expected fresh stats after invalidation, got %+v", stats)
	}
	if loader.count() != 2 {
		t.Fatalf("expected 2 loads, got %d", loader.count())
	}
}

func TestStatsRepositoryInvalidateDuringFill(t *testing.T) {
	ctx := context.Background()
	attempts := NewAttemptStore()
	loader := &gatedLoader{
		inner:   attempts,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	repo := NewStatsRepository(loader, time.Hour)

	done := make(chan domain.Stats, 1)
	go func() {
		stats, _ := repo.GetStats(ctx, "u1")
		done <- stats
	}()
	<-loader.entered

	_ = attempts.RecordAttempt(ctx, domain.Attempt{UserID: "u1", Difficulty: domain.DifficultyEasy, Percentage: 90})
	if err := repo.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	if stale := <-done; stale.TotalAttempts != 0 {
		t.Fatalf("expected the in-flight fill to see the old archive, got %+v", stale)
	}

	stats, err := repo.GetStats(ctx, "u1")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.TotalAttempts != 1 {
		t.Fatalf("expected stale fill to be dropped, got %+v", stats)
	}
}

func TestStatsRepositoryExpires(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewAttemptStore()}
	repo := NewStatsRepository(loader, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetStats(ctx, "u1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetStats(ctx, "u1")

	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, got %d loads", loader.count())
	}
}

func TestStatsRepositoryPropagatesErrors(t *testing.T) {
	repo := NewStatsRepository(failingLoader{}, time.Minute)
	if _, err := repo.GetStats(context.Background(), "u1"); err == nil {
		t.Fatalf("expected loader error")
	}
}

type countingLoader struct {
	inner *AttemptStore
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadStats(ctx context.Context, userID string) (domain.Stats, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.inner.LoadStats(ctx, userID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// gatedLoader snapshots the archive, then waits for release before returning.
type gatedLoader struct {
	inner   *AttemptStore
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLoader) LoadStats(ctx context.Context, userID string) (domain.Stats, error) {
	stats, err := l.inner.LoadStats(ctx, userID)
	select {
	case l.entered <- struct{}{}:
	default:
	}
	<-l.release
	return stats, err
}

type failingLoader struct{}

func (failingLoader) LoadStats(context.Context, string) (domain.Stats, error) {
	return domain.Stats{}, errors.New("archive down")
}
