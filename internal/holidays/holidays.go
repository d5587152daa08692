package holidays

import (
	"errors"
	"strings"
	"time"
)

// ErrUnsupportedRegion is returned by providers that have no data for a region
var ErrUnsupportedRegion = errors.New("unsupported holiday region")

// Holiday is a public holiday of one region
type Holiday struct {
	Region string    `json:"region"`
	Date   time.Time `json:"date"`
	Name   string    `json:"name"`
}

// Provider is a read-only public holiday table keyed by region and date
type Provider interface {
	// Lookup returns the holiday on date, or nil when the date is not a holiday
	Lookup(region string, date time.Time) (*Holiday, error)

	// Range returns the holidays between from and to inclusive, ordered by date
	Range(region string, from, to time.Time) ([]Holiday, error)
}

// Clearer is implemented by providers that keep a cache
type Clearer interface {
	ClearCache()
}

// NormalizeRegion upper-cases a region code, e.g. "de-nw" -> "DE-NW"
func NormalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}

func dateKey(date time.Time) string {
	return date.Format("2006-01-02")
}

func midnight(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}
