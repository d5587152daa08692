package holidays

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Static is an in-memory holiday table. Regions without entries simply have
// no holidays.
type Static struct {
	mu   sync.RWMutex
	data map[string]map[string]Holiday // region -> YYYY-MM-DD -> holiday
}

// NewStatic creates a table holding the given holidays
func NewStatic(holidays ...Holiday) *Static {
	s := &Static{data: make(map[string]map[string]Holiday)}
	for _, h := range holidays {
		s.Add(h)
	}
	return s
}

// Add inserts or replaces a holiday
func (s *Static) Add(h Holiday) {
	h.Region = NormalizeRegion(h.Region)
	h.Date = midnight(h.Date)

	s.mu.Lock()
	defer s.mu.Unlock()

	days, ok := s.data[h.Region]
	if !ok {
		days = make(map[string]Holiday)
		s.data[h.Region] = days
	}
	days[dateKey(h.Date)] = h
}

// Len returns the number of holidays across all regions
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, days := range s.data {
		n += len(days)
	}
	return n
}

// All returns every holiday ordered by region, then date
func (s *Static) All() []Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Holiday
	for _, days := range s.data {
		for _, h := range days {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Lookup returns the holiday on date
func (s *Static) Lookup(region string, date time.Time) (*Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[NormalizeRegion(region)][dateKey(date)]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// Range returns the holidays between from and to inclusive
func (s *Static) Range(region string, from, to time.Time) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = midnight(from), midnight(to)
	var out []Holiday
	for _, h := range s.data[NormalizeRegion(region)] {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LoadFile reads a holiday table file.
//
// Format, one holiday per line: REGION YYYY-MM-DD name...
// Example: DE-NW 2026-06-04 Fronleichnam
// Blank lines and lines starting with # are ignored; malformed lines are
// logged and skipped.
func LoadFile(path string, logger *zap.Logger) (*Static, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holiday file: %w", err)
	}
	defer file.Close()

	table, err := Parse(file, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Holiday file loaded",
		zap.String("file", path),
		zap.Int("holidays", table.Len()))

	return table, nil
}

// Parse reads the holiday table format from r
func Parse(r io.Reader, logger *zap.Logger) (*Static, error) {
	table := NewStatic()
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 3 {
			logger.Warn("Invalid holiday line format",
				zap.Int("line", lineNo),
				zap.String("text", line))
			continue
		}

		date, err := time.Parse("2006-01-02", parts[1])
		if err != nil {
			logger.Warn("Failed to parse holiday date",
				zap.Int("line", lineNo),
				zap.String("date", parts[1]),
				zap.Error(err))
			continue
		}

		table.Add(Holiday{
			Region: parts[0],
			Date:   date,
			Name:   strings.Join(parts[2:], " "),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading holiday file: %w", err)
	}

	return table, nil
}
