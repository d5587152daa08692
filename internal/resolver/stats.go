package resolver

import (
	"math"
	"time"

	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
	"go.uber.org/zap"
)

// MonthView is the resolved calendar of one month
type MonthView struct {
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	Days        []DayView  `json:"days"`
	TotalDays   int        `json:"total_days"`
	WorkCount   float64    `json:"work_count"`
	OffCount    float64    `json:"off_count"`
	WorkPercent int        `json:"work_percent"`
}

// ResolveMonth resolves every date of the month against overrides and
// holidays and counts work-like and off-like days
func (r *Resolver) ResolveMonth(state *schedule.State, year int, month time.Month) (*MonthView, error) {
	total := dateutil.DaysInMonth(year, month)
	view := &MonthView{
		Year:      year,
		Month:     month,
		Days:      make([]DayView, 0, total),
		TotalDays: total,
	}

	for day := 1; day <= total; day++ {
		date := dateutil.Date(year, month, day)

		resolved, err := r.ResolveDay(state, date)
		if err != nil {
			return nil, err
		}
		view.Days = append(view.Days, *resolved)

		for _, s := range viewShares(resolved) {
			if s.dayType.IsWorkLike() {
				view.WorkCount += s.weight
			} else {
				view.OffCount += s.weight
			}
		}
	}

	view.WorkPercent = percent(view.WorkCount, total)
	return view, nil
}

// YearStatistics tallies a whole year by day type
type YearStatistics struct {
	Year        int                `json:"year"`
	WorkDays    float64            `json:"work_days"`
	Holidays    float64            `json:"holidays"`
	Vacation    float64            `json:"vacation"`
	Sick        float64            `json:"sick"`
	OffDays     float64            `json:"off_days"`
	ByDayType   map[string]float64 `json:"by_day_type"`
	Total       int                `json:"total"`
	WorkPercent int                `json:"work_percent"`
}

// ResolveYearStatistics resolves every date from January 1 to December 31.
// Work-like days count as work days whatever their name; off-like days are
// bucketed by their stable key, with anything unlisted falling into OffDays.
func (r *Resolver) ResolveYearStatistics(state *schedule.State, year int) (*YearStatistics, error) {
	stats := &YearStatistics{
		Year:      year,
		ByDayType: make(map[string]float64),
	}

	for date := dateutil.Date(year, time.January, 1); date.Year() == year; date = date.AddDate(0, 0, 1) {
		shares, err := r.shares(state, date)
		if err != nil {
			return nil, err
		}
		for _, s := range shares {
			stats.add(s)
		}
		stats.Total++
	}

	stats.WorkPercent = percent(stats.WorkDays, stats.Total)

	r.logger.Debug("Year statistics resolved",
		zap.String("owner", state.Owner),
		zap.Int("year", year),
		zap.Int("total", stats.Total),
		zap.Float64("work_days", stats.WorkDays),
		zap.Float64("holidays", stats.Holidays))

	return stats, nil
}

func (s *YearStatistics) add(sh share) {
	s.ByDayType[sh.dayType.Key] += sh.weight

	if sh.dayType.IsWorkLike() {
		s.WorkDays += sh.weight
		return
	}

	switch sh.dayType.Key {
	case schedule.KeyHoliday:
		s.Holidays += sh.weight
	case schedule.KeyVacation:
		s.Vacation += sh.weight
	case schedule.KeySick:
		s.Sick += sh.weight
	default:
		s.OffDays += sh.weight
	}
}

func percent(part float64, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(part / float64(total) * 100))
}
