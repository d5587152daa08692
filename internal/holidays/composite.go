package holidays

import (
	"time"

	"go.uber.org/zap"
)

// Composite implements Provider with a fallback strategy: the fallback is
// consulted whenever the primary returns an error
type Composite struct {
	primary  Provider
	fallback Provider
	logger   *zap.Logger
}

// NewComposite creates a new Composite
func NewComposite(primary, fallback Provider, logger *zap.Logger) *Composite {
	return &Composite{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Lookup returns the holiday on date
func (cp *Composite) Lookup(region string, date time.Time) (*Holiday, error) {
	h, err := cp.primary.Lookup(region, date)
	if err == nil {
		return h, nil
	}

	cp.logger.Warn("Primary holiday provider failed, falling back",
		zap.String("region", region),
		zap.Time("date", date),
		zap.Error(err))

	return cp.fallback.Lookup(region, date)
}

// Range returns the holidays between from and to inclusive
func (cp *Composite) Range(region string, from, to time.Time) ([]Holiday, error) {
	days, err := cp.primary.Range(region, from, to)
	if err == nil {
		return days, nil
	}

	cp.logger.Warn("Primary holiday provider failed, falling back",
		zap.String("region", region),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Error(err))

	return cp.fallback.Range(region, from, to)
}

// ClearCache clears both providers when they keep caches
func (cp *Composite) ClearCache() {
	for _, p := range []Provider{cp.primary, cp.fallback} {
		if clearer, ok := p.(Clearer); ok {
			clearer.ClearCache()
		}
	}
}
