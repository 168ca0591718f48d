package app

import (
	"context"
	"time"
)

// RunJanitor sweeps idle sessions every interval until ctx is done.
// A non-positive interval disables sweeping.
func (s *TriviaService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug().Int("evicted", n).Int("active", s.sessions.Len()).Msg("janitor sweep")
			}
		}
	}
}
