package agdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/observability"
)

// CacheConfig sets where cached frames live and how long each category
// stays fresh. Fast-moving categories (weather, prices) get the short TTL,
// slow-moving ones (production, soil) the long TTL.
type CacheConfig struct {
	Dir      string
	ShortTTL time.Duration
	LongTTL  time.Duration
}

// CachedProvider wraps a provider with a file-per-key cache. Staleness is
// judged from the cache file's mtime, and the cache is advisory: any cache
// failure degrades to the inner provider, and a stale file still serves as a
// last resort when the inner provider fails.
type CachedProvider struct {
	inner   domain.RawDataProvider
	cfg     CacheConfig
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.RawDataProvider, cfg CacheConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedProvider) Collect(ctx context.Context, category domain.Category, region, crop string, lookbackDays int) (domain.Frame, error) {
	path := c.cachePath(category, region, crop)

	if frame, ok := c.readFresh(path, category); ok {
		c.metrics.CacheEvents.WithLabelValues(string(category), "hit").Inc()
		return frame, nil
	}
	c.metrics.CacheEvents.WithLabelValues(string(category), "miss").Inc()

	frame, err := c.inner.Collect(ctx, category, region, crop, lookbackDays)
	if err != nil {
		// Stale beats nothing when the source is down.
		if stale, ok := c.readAny(path, category); ok {
			c.metrics.CacheEvents.WithLabelValues(string(category), "stale").Inc()
			c.logger.Warn("provider failed, serving stale cache",
				"category", string(category), "region", region, "crop", crop, "error", err)
			return stale, nil
		}
		return domain.Frame{}, err
	}

	if !frame.Empty() {
		c.write(path, frame)
	}
	return frame, nil
}

func (c *CachedProvider) cachePath(category domain.Category, region, crop string) string {
	name := fmt.Sprintf("%s_%s_%s.json", category, sanitize(region), sanitize(crop))
	return filepath.Join(c.cfg.Dir, name)
}

func (c *CachedProvider) ttl(category domain.Category) time.Duration {
	switch category {
	case domain.CategoryWeather, domain.CategoryPrices:
		return c.cfg.ShortTTL
	default:
		return c.cfg.LongTTL
	}
}

// readFresh returns the cached frame only when its mtime is within the
// category's TTL.
func (c *CachedProvider) readFresh(path string, category domain.Category) (domain.Frame, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Frame{}, false
	}
	if c.clock.Now().Sub(info.ModTime()) > c.ttl(category) {
		return domain.Frame{}, false
	}
	return c.readAny(path, category)
}

func (c *CachedProvider) readAny(path string, category domain.Category) (domain.Frame, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Frame{}, false
	}
	var frame domain.Frame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Category != category {
		c.logger.Warn("discarding unreadable cache file", "path", path, "error", err)
		return domain.Frame{}, false
	}
	return frame, true
}

func (c *CachedProvider) write(path string, frame domain.Frame) {
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		c.logger.Warn("cache dir unavailable, skipping cache write", "dir", c.cfg.Dir, "error", err)
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Warn("cache marshal failed", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.logger.Warn("cache write failed", "path", path, "error", err)
	}
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
}
