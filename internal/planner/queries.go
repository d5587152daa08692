package planner

import (
	"context"
	"time"

	"github.com/username/day-planner/internal/resolver"
	"github.com/username/day-planner/internal/schedule"
	"go.uber.org/zap"
)

// DayType resolves the whole-day classification of date
func (s *Service) DayType(ctx context.Context, owner string, date time.Time) (schedule.DayType, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return schedule.DayType{}, err
	}
	return s.resolver.ResolveDayType(state, date)
}

// Activities resolves the blocks that apply on date
func (s *Service) Activities(ctx context.Context, owner string, date time.Time) ([]schedule.Block, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveActivities(state, date)
}

// Day resolves the full descriptor of date
func (s *Service) Day(ctx context.Context, owner string, date time.Time) (*resolver.DayView, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveDay(state, date)
}

// Week resolves the generic Monday..Sunday view
func (s *Service) Week(ctx context.Context, owner string) ([]resolver.WeekdayView, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveWeek(state)
}

// WeekStats aggregates the actual week containing date
func (s *Service) WeekStats(ctx context.Context, owner string, date time.Time) (*resolver.WeekStats, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.resolver.WeekStatistics(state, date)
}

// Month resolves a calendar month
func (s *Service) Month(ctx context.Context, owner string, year int, month time.Month) (*resolver.MonthView, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveMonth(state, year, month)
}

// Overlaps reports blocks sharing time on date
func (s *Service) Overlaps(ctx context.Context, owner string, date time.Time) ([]resolver.Overlap, error) {
	blocks, err := s.Activities(ctx, owner, date)
	if err != nil {
		return nil, err
	}
	return resolver.Overlaps(blocks), nil
}

// Year returns the year statistics of owner, memoized until the owner's
// next write. A result computed while a write landed is returned but not kept.
func (s *Service) Year(ctx context.Context, owner string, year int) (*resolver.YearStatistics, error) {
	key := yearKey{owner: owner, year: year}

	s.mu.RLock()
	cached, ok := s.years[key]
	gen := s.generationOf(owner)
	s.mu.RUnlock()
	if ok {
		s.logger.Debug("Year statistics cache hit", zap.String("owner", owner), zap.Int("year", year))
		return copyYear(cached), nil
	}

	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	stats, err := s.resolver.ResolveYearStatistics(state, year)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generationOf(owner) == gen {
		s.years[key] = stats
	} else {
		s.logger.Debug("Discarding year statistics computed during a write",
			zap.String("owner", owner), zap.Int("year", year))
	}
	s.mu.Unlock()

	return copyYear(stats), nil
}

// WarmYear recomputes the statistics of year for every owner and returns how
// many owners were refreshed
func (s *Service) WarmYear(ctx context.Context, year int) (int, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		s.invalidate(owner)
		if _, err := s.Year(ctx, owner, year); err != nil {
			s.logger.Warn("Failed to refresh year statistics",
				zap.String("owner", owner),
				zap.Int("year", year),
				zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func copyYear(stats *resolver.YearStatistics) *resolver.YearStatistics {
	out := *stats
	out.ByDayType = make(map[string]float64, len(stats.ByDayType))
	for k, v := range stats.ByDayType {
		out.ByDayType[k] = v
	}
	return &out
}
