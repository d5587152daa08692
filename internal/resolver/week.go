package resolver

import (
	"time"

	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
)

// WeekdayView describes a generic weekday, independent of any date
type WeekdayView struct {
	Weekday         int              `json:"weekday"`
	Name            string           `json:"name"`
	DayType         schedule.DayType `json:"day_type"`
	Source          Source           `json:"source"`
	HasCustom       bool             `json:"has_custom"`
	Blocks          []schedule.Block `json:"blocks"`
	IsWeekend       bool             `json:"is_weekend"`
	PlannedMinutes  int              `json:"planned_minutes"`
	CategoryMinutes map[string]int   `json:"category_minutes"`
}

// ResolveWeek answers "what does a generic Monday..Sunday look like" from the
// weekday configs and defaults alone. Overrides and holidays never apply.
func (r *Resolver) ResolveWeek(state *schedule.State) ([]WeekdayView, error) {
	week := make([]WeekdayView, 0, 7)

	for wd := 0; wd < 7; wd++ {
		dt, source, err := weekdayDayType(state, wd)
		if err != nil {
			return nil, err
		}
		blocks, err := blocksFor(state, dt, wd)
		if err != nil {
			return nil, err
		}

		view := WeekdayView{
			Weekday:         wd,
			Name:            dateutil.WeekdayName(wd),
			DayType:         dt,
			Source:          source,
			Blocks:          blocks,
			IsWeekend:       wd >= 5,
			CategoryMinutes: make(map[string]int),
		}
		if cfg, ok := state.Weekday(wd); ok {
			view.HasCustom = cfg.HasCustom
		}
		view.PlannedMinutes = addCategoryMinutes(view.CategoryMinutes, blocks)

		week = append(week, view)
	}

	return week, nil
}

// WeekStats aggregates the seven actual dates of one week
type WeekStats struct {
	Start           time.Time          `json:"start"`
	End             time.Time          `json:"end"`
	Days            []DayView          `json:"days"`
	WorkDays        float64            `json:"work_days"`
	OffDays         float64            `json:"off_days"`
	ByDayType       map[string]float64 `json:"by_day_type"`
	PlannedMinutes  int                `json:"planned_minutes"`
	CategoryMinutes map[string]int     `json:"category_minutes"`
}

// WeekStatistics resolves the week containing date, starting on the owner's
// configured week start day
func (r *Resolver) WeekStatistics(state *schedule.State, date time.Time) (*WeekStats, error) {
	start := dateutil.StartOfWeekOn(date, state.Settings.WeekStart)
	stats := &WeekStats{
		Start:           start,
		End:             start.AddDate(0, 0, 6),
		Days:            make([]DayView, 0, 7),
		ByDayType:       make(map[string]float64),
		CategoryMinutes: make(map[string]int),
	}

	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		day, err := r.ResolveDay(state, d)
		if err != nil {
			return nil, err
		}
		stats.Days = append(stats.Days, *day)
		stats.PlannedMinutes += addCategoryMinutes(stats.CategoryMinutes, day.Blocks)

		for _, s := range viewShares(day) {
			stats.ByDayType[s.dayType.Key] += s.weight
			if s.dayType.IsWorkLike() {
				stats.WorkDays += s.weight
			} else {
				stats.OffDays += s.weight
			}
		}
	}

	return stats, nil
}

// UncategorizedKey collects minutes of blocks without a category
const UncategorizedKey = ""

func addCategoryMinutes(totals map[string]int, blocks []schedule.Block) int {
	sum := 0
	for _, b := range blocks {
		key := UncategorizedKey
		if b.CategoryID != nil {
			key = *b.CategoryID
		}
		totals[key] += b.Duration()
		sum += b.Duration()
	}
	return sum
}
