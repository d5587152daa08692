package holidays

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultCacheTTL = 24 * time.Hour

// Cached wraps a provider with a per (region, year) TTL cache. Holiday data is
// shared by every owner, so one Cached instance serves all resolutions.
type Cached struct {
	inner    Provider
	cacheTTL time.Duration
	logger   *zap.Logger
	cache    map[string]*cachedYear
	cacheMu  sync.RWMutex
	now      func() time.Time
}

type cachedYear struct {
	days      map[string]Holiday
	fetchedAt time.Time
}

// NewCached creates a caching provider; a zero ttl means 24h
func NewCached(inner Provider, cacheTTL time.Duration, logger *zap.Logger) *Cached {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Cached{
		inner:    inner,
		cacheTTL: cacheTTL,
		logger:   logger,
		cache:    make(map[string]*cachedYear),
		now:      time.Now,
	}
}

// Lookup returns the holiday on date
func (c *Cached) Lookup(region string, date time.Time) (*Holiday, error) {
	days, err := c.year(region, date.Year())
	if err != nil {
		return nil, err
	}

	h, ok := days[dateKey(date)]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// Range returns the holidays between from and to inclusive
func (c *Cached) Range(region string, from, to time.Time) ([]Holiday, error) {
	from, to = midnight(from), midnight(to)

	var out []Holiday
	for year := from.Year(); year <= to.Year(); year++ {
		days, err := c.year(region, year)
		if err != nil {
			return nil, err
		}
		for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
			if d.Before(from) || d.After(to) {
				continue
			}
			if h, ok := days[dateKey(d)]; ok {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

// ClearCache drops every cached year and clears the wrapped provider's cache
func (c *Cached) ClearCache() {
	c.cacheMu.Lock()
	c.cache = make(map[string]*cachedYear)
	c.cacheMu.Unlock()

	if clearer, ok := c.inner.(Clearer); ok {
		clearer.ClearCache()
	}
	c.logger.Info("Holiday cache cleared")
}

func (c *Cached) year(region string, year int) (map[string]Holiday, error) {
	region = NormalizeRegion(region)
	cacheKey := fmt.Sprintf("%s/%d", region, year)

	c.cacheMu.RLock()
	if cached, ok := c.cache[cacheKey]; ok {
		if c.now().Sub(cached.fetchedAt) < c.cacheTTL {
			c.cacheMu.RUnlock()
			return cached.days, nil
		}
	}
	c.cacheMu.RUnlock()

	holidays, err := c.inner.Range(region,
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}

	days := make(map[string]Holiday, len(holidays))
	for _, h := range holidays {
		days[dateKey(h.Date)] = h
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = &cachedYear{
		days:      days,
		fetchedAt: c.now(),
	}
	c.cacheMu.Unlock()

	c.logger.Debug("Holiday year fetched and cached",
		zap.String("region", region),
		zap.Int("year", year),
		zap.Int("holidays", len(days)))

	return days, nil
}
