package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/grillo/internal/application"
	"github.com/example/grillo/internal/logging"
)

// Syncer refreshes a Cache from a Source and publishes each fresh roster.
type Syncer struct {
	source   Source
	cache    *Cache
	interval time.Duration
	timeout  time.Duration
	updates  chan []application.Identity
	now      func() time.Time
	logger   *slog.Logger
}

// NewSyncer wires a syncer. Rosters are published on a channel with a
// buffer of one; a slow consumer only ever sees the newest roster.
func NewSyncer(source Source, cache *Cache, interval, timeout time.Duration, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		source:   source,
		cache:    cache,
		interval: interval,
		timeout:  timeout,
		updates:  make(chan []application.Identity, 1),
		now:      time.Now,
		logger:   logger.With("component", "directory.Syncer"),
	}
}

// Updates returns the channel fresh rosters are sent on. It is closed when Run returns.
func (s *Syncer) Updates() <-chan []application.Identity {
	return s.updates
}

// Refresh fetches the roster once under the configured timeout. On failure
// the cache keeps its previous contents.
func (s *Syncer) Refresh(ctx context.Context) error {
	if s.source == nil || s.cache == nil {
		return fmt.Errorf("directory syncer not configured")
	}

	logger := s.logger
	if ctxLogger := logging.FromContext(ctx); ctxLogger != nil {
		logger = ctxLogger.With("component", "directory.Syncer")
	}

	fetchCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := s.now()
	identities, err := s.source.Fetch(fetchCtx)
	if err != nil {
		logger.WarnContext(ctx, "directory refresh failed, keeping cached roster",
			"error", err,
			"cached_at", s.cache.FetchedAt(),
		)
		return fmt.Errorf("fetch roster: %w", err)
	}

	s.cache.Store(identities, started)
	logger.DebugContext(ctx, "directory refreshed", "identities", len(identities), "duration", s.now().Sub(started))
	s.publish(identities)
	return nil
}

func (s *Syncer) publish(identities []application.Identity) {
	roster := make([]application.Identity, len(identities))
	copy(roster, identities)
	for {
		select {
		case s.updates <- roster:
			return
		default:
		}
		// Drop the stale roster nobody consumed yet.
		select {
		case <-s.updates:
		default:
		}
	}
}

// Run refreshes immediately and then on every tick until ctx ends.
func (s *Syncer) Run(ctx context.Context) {
	defer close(s.updates)

	_ = s.Refresh(ctx)
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}
