package avatarcache

import (
	"context"
	"log/slog"
)

// Service is the UI-facing surface: resolve a source reference to its
// derived artifact, consulting the cache first.
type Service struct {
	cache   *Cache
	deriver *Deriver
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(cache *Cache, deriver *Deriver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, deriver: deriver, logger: logger}
}

// Resolve returns the derived artifact for a source reference at a quality
// tier, deriving and caching it on a miss. On derivation failure the source
// reference itself is returned so the caller always has something to render;
// the failure is not cached.
func (s *Service) Resolve(ctx context.Context, sourceRef string, tier QualityTier) string {
	if sourceRef == "" {
		return ""
	}

	key := Key(sourceRef, tier)
	if entry, ok := s.cache.Get(ctx, key); ok {
		return entry.OptimizedURL
	}

	artifact, err := s.deriver.Derive(ctx, sourceRef, tier)
	if err != nil {
		s.logger.Warn("avatar derivation failed",
			slog.String("source", sourceRef),
			slog.String("error", err.Error()))
		return sourceRef
	}

	s.cache.Set(ctx, key, Entry{URL: sourceRef, OptimizedURL: artifact})
	return artifact
}

// Clear drops all cached artifacts.
func (s *Service) Clear(ctx context.Context) {
	s.cache.Clear(ctx)
}
