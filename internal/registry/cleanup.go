package registry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupInterval is the default tick between Cleanup Service passes.
const CleanupInterval = 10 * time.Second

// CleanupService evicts expired recently-ended entries and removes sessions
// idle past the configured maxIdleMinutes threshold. It owns no state of
// its own beyond its tick loop — the recently-ended map lives on Registry
// so the registration path (upsert) and the eviction path share one lock.
type CleanupService struct {
	registry       *Registry
	maxIdle        time.Duration
	interval       time.Duration
	log            zerolog.Logger
}

func NewCleanupService(r *Registry, maxIdle time.Duration, log zerolog.Logger) *CleanupService {
	return &CleanupService{registry: r, maxIdle: maxIdle, interval: CleanupInterval, log: log}
}

// Run blocks, ticking until ctx is cancelled.
func (c *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *CleanupService) tick() {
	evicted := c.registry.EvictExpiredEnded()
	if evicted > 0 {
		c.log.Debug().Int("evicted", evicted).Msg("cleanup: expired recently-ended entries evicted")
	}

	for _, sess := range c.registry.List() {
		if sess.IsEnded() {
			continue
		}
		last := time.UnixMilli(sess.LastActivityMS)
		if time.Since(last) > c.maxIdle {
			c.log.Info().Str("sessionId", sess.SessionID).Msg("cleanup: ending session past max idle threshold")
			if err := c.registry.End(sess.SessionID, EndReasonIdleTimeout); err != nil {
				c.log.Warn().Err(err).Str("sessionId", sess.SessionID).Msg("cleanup: failed to end idle session")
			}
		}
	}
}
