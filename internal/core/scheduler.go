package core

// scheduler.go runs background maintenance for session workspaces.
//
// Workspaces live only in memory, so an operator who closes the browser
// leaves three stores behind. The sweeper drops workspaces idle for longer
// than the session TTL. It is long-running and stops when its context ends.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle workspaces are checked for.
const DefaultSweepInterval = 5 * time.Minute

// StartSessionSweeper removes idle workspaces every interval until ctx is
// cancelled. It runs once immediately on start.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	slog.Info("session sweeper started",
		"interval", interval.String(),
		"ttl", s.opts.SessionTTL.String(),
	)

	s.runSweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

// runSweep performs one pass and logs what it removed.
func (s *Service) runSweep() {
	start := time.Now()
	removed := s.SweepIdle(s.now())
	if removed == 0 {
		slog.Debug("session sweep found nothing idle")
		return
	}
	slog.Info("idle workspaces removed",
		"removed", removed,
		"remaining", s.WorkspaceCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
