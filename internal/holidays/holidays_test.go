package holidays

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestEaster(t *testing.T) {
	tests := []struct {
		year int
		want time.Time
	}{
		{2024, date(2024, time.March, 31)},
		{2025, date(2025, time.April, 20)},
		{2026, date(2026, time.April, 5)},
		{2028, date(2028, time.April, 16)},
	}

	for _, tt := range tests {
		if got := Easter(tt.year); !got.Equal(tt.want) {
			t.Errorf("Easter(%d) = %s, want %s", tt.year, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
		}
	}
}

func TestBuiltin(t *testing.T) {
	b := NewBuiltin()

	nrw, err := b.Year("de-nw", 2026)
	if err != nil {
		t.Fatalf("Year(DE-NW) error = %v", err)
	}
	if len(nrw) != 11 {
		t.Errorf("DE-NW 2026 holidays = %d, want 11", len(nrw))
	}

	federal, _ := b.Year("DE", 2026)
	if len(federal) != 9 {
		t.Errorf("DE 2026 holidays = %d, want 9", len(federal))
	}

	tests := []struct {
		name   string
		region string
		date   time.Time
		want   string
	}{
		{"Corpus Christi in NRW", "DE-NW", date(2026, time.June, 4), "Fronleichnam"},
		{"Corpus Christi not federal", "DE", date(2026, time.June, 4), ""},
		{"Good Friday", "DE", date(2026, time.April, 3), "Karfreitag"},
		{"Regular Tuesday", "DE-NW", date(2026, time.April, 7), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := b.Lookup(tt.region, tt.date)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			got := ""
			if h != nil {
				got = h.Name
			}
			if got != tt.want {
				t.Errorf("Lookup(%s, %s) = %q, want %q", tt.region, tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}

	if _, err := b.Lookup("FR", date(2026, 1, 1)); !errors.Is(err, ErrUnsupportedRegion) {
		t.Errorf("Lookup(FR) error = %v, want ErrUnsupportedRegion", err)
	}
}

func TestParseHolidayFile(t *testing.T) {
	input := `# region date name
DE-NW 2026-06-04 Fronleichnam
de-nw 2026-11-01 Allerheiligen

XX not-a-date Broken
short line
`
	table, err := Parse(strings.NewReader(input), zap.NewNop())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}

	h, _ := table.Lookup("DE-NW", date(2026, time.November, 1))
	if h == nil || h.Name != "Allerheiligen" {
		t.Errorf("Lookup() = %v, want Allerheiligen", h)
	}

	days, _ := table.Range("de-nw", date(2026, 1, 1), date(2026, 6, 30))
	if len(days) != 1 || days[0].Name != "Fronleichnam" {
		t.Errorf("Range() = %v, want only Fronleichnam", days)
	}

	if h, err := table.Lookup("FR", date(2026, 6, 4)); h != nil || err != nil {
		t.Errorf("Lookup(unknown region) = %v, %v; want nil, nil", h, err)
	}
}

type countingProvider struct {
	inner Provider
	calls int
	fail  bool
}

func (c *countingProvider) Lookup(region string, d time.Time) (*Holiday, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("boom")
	}
	return c.inner.Lookup(region, d)
}

func (c *countingProvider) Range(region string, from, to time.Time) ([]Holiday, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("boom")
	}
	return c.inner.Range(region, from, to)
}

func TestCached(t *testing.T) {
	inner := &countingProvider{inner: NewBuiltin()}
	cached := NewCached(inner, time.Hour, zap.NewNop())

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	for d := date(2026, 1, 1); d.Year() == 2026; d = d.AddDate(0, 0, 1) {
		if _, err := cached.Lookup("DE-NW", d); err != nil {
			t.Fatalf("Lookup(%s) error = %v", d.Format("2006-01-02"), err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls after a full year = %d, want 1", inner.calls)
	}

	days, err := cached.Range("DE-NW", date(2026, 12, 1), date(2027, 1, 1))
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(days) != 3 {
		t.Errorf("Range(Dec..Jan 1) = %d holidays, want 3", len(days))
	}
	if inner.calls != 2 {
		t.Errorf("inner calls after 2027 range = %d, want 2", inner.calls)
	}

	now = now.Add(2 * time.Hour)
	if _, err := cached.Lookup("DE-NW", date(2026, 5, 1)); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls after TTL expiry = %d, want 3", inner.calls)
	}

	cached.ClearCache()
	cached.cacheMu.RLock()
	defer cached.cacheMu.RUnlock()
	if len(cached.cache) != 0 {
		t.Errorf("Cache not cleared, len = %d", len(cached.cache))
	}
}

func TestComposite(t *testing.T) {
	primary := &countingProvider{inner: NewStatic(), fail: true}
	fallback := NewStatic(Holiday{Region: "DE-NW", Date: date(2026, 6, 4), Name: "Fronleichnam"})
	cp := NewComposite(primary, fallback, zap.NewNop())

	h, err := cp.Lookup("DE-NW", date(2026, 6, 4))
	if err != nil || h == nil {
		t.Fatalf("Lookup() = %v, %v; want fallback holiday", h, err)
	}

	days, err := cp.Range("DE-NW", date(2026, 1, 1), date(2026, 12, 31))
	if err != nil || len(days) != 1 {
		t.Errorf("Range() = %v, %v; want 1 holiday from fallback", days, err)
	}
	if primary.calls != 2 {
		t.Errorf("primary calls = %d, want 2", primary.calls)
	}
}
