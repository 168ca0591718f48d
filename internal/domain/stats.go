package domain

import "math"

// SummarizeAttempts folds archived attempts of one user into Stats.
func SummarizeAttempts(userID string, attempts []Attempt) Stats {
	stats := Stats{UserID: userID, TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return stats
	}

	var score, precision, elapsed int
	for _, a := range attempts {
		score += a.Percentage
		precision += a.Precision
		elapsed += a.TotalTime
		switch a.Difficulty {
		case DifficultyEasy:
			stats.AttemptsByDifficulty.Easy++
		case DifficultyHard:
			stats.AttemptsByDifficulty.Hard++
		default:
			stats.AttemptsByDifficulty.Medium++
		}
	}

	n := float64(len(attempts))
	stats.Averages = StatsAverages{
		Score:     int(math.Round(float64(score) / n)),
		Precision: int(math.Round(float64(precision) / n)),
		Time:      int(math.Round(float64(elapsed) / n)),
	}
	return stats
}
