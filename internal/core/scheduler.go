package core

import (
	"context"
	"log/slog"
	"time"
)

// EvictionConfig controls idle table eviction.
type EvictionConfig struct {
	IdleTTL       time.Duration // tables untouched this long are dropped; 0 disables
	CheckInterval time.Duration // how often to check
}

// StartEvictionScheduler drops idle tables every CheckInterval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartEvictionScheduler(ctx context.Context, cfg EvictionConfig) {
	if cfg.IdleTTL <= 0 || cfg.CheckInterval <= 0 {
		slog.Info("eviction scheduler disabled")
		return
	}

	slog.Info("eviction scheduler started",
		"idle_ttl", cfg.IdleTTL,
		"check_interval", cfg.CheckInterval,
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("eviction scheduler stopped")
			return
		case <-ticker.C:
			s.runEviction(cfg.IdleTTL)
		}
	}
}

// runEviction performs one eviction pass.
func (s *Service) runEviction(ttl time.Duration) {
	start := time.Now()
	evicted := s.EvictIdle(s.opts.Now().Add(-ttl))
	if len(evicted) == 0 {
		slog.Debug("eviction pass found no idle tables")
		return
	}

	slog.Info("evicted idle tables",
		"tables", evicted,
		"remaining", s.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
