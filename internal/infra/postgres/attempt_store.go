package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

// AttemptStore archives completed attempts in Postgres and aggregates them into stats.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) RecordAttempt(ctx context.Context, a domain.Attempt) error {
	raw, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO trivia_attempts (
			attempt_id, session_id, user_id, category, difficulty,
			score, max_score, percentage, total_time, precision_score,
			results, attempted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.SessionID, a.UserID, a.Category, string(a.Difficulty),
		a.Score, a.MaxScore, a.Percentage, a.TotalTime, a.Precision,
		raw, a.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) LoadStats(ctx context.Context, userID string) (domain.Stats, error) {
	stats := domain.Stats{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*)::int,
			coalesce(round(avg(percentage)), 0)::int,
			coalesce(round(avg(precision_score)), 0)::int,
			coalesce(round(avg(total_time)), 0)::int,
			count(*) FILTER (WHERE difficulty = 'easy')::int,
			count(*) FILTER (WHERE difficulty = 'medium')::int,
			count(*) FILTER (WHERE difficulty = 'hard')::int
		FROM trivia_attempts
		WHERE user_id = $1`, userID,
	).Scan(
		&stats.TotalAttempts,
		&stats.Averages.Score,
		&stats.Averages.Precision,
		&stats.Averages.Time,
		&stats.AttemptsByDifficulty.Easy,
		&stats.AttemptsByDifficulty.Medium,
		&stats.AttemptsByDifficulty.Hard,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}
