package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
	"go.uber.org/zap"
)

// Source names the precedence tier that decided a day type
type Source string

const (
	SourceOverride Source = "override"
	SourceHoliday  Source = "holiday"
	SourceWeekday  Source = "weekday"
	SourceDefault  Source = "default"
)

// Halves holds the day types of the two halves of a split date
type Halves struct {
	AM schedule.DayType `json:"am"`
	PM schedule.DayType `json:"pm"`
}

// DayView is the resolved descriptor of one calendar date
type DayView struct {
	Date           time.Time         `json:"date"`
	Weekday        int               `json:"weekday"`
	WeekdayName    string            `json:"weekday_name"`
	DayType        schedule.DayType  `json:"day_type"`
	Source         Source            `json:"source"`
	Holiday        *holidays.Holiday `json:"holiday,omitempty"`
	Note           string            `json:"note,omitempty"`
	Halves         *Halves           `json:"halves,omitempty"`
	Blocks         []schedule.Block  `json:"blocks"`
	PlannedMinutes int               `json:"planned_minutes"`
	IsWeekend      bool              `json:"is_weekend"`
}

// Resolver turns an owner's state into resolved days. It never mutates the
// state it is given.
type Resolver struct {
	holidays holidays.Provider
	logger   *zap.Logger
}

// New creates a resolver. provider may be nil, in which case no date is
// treated as a public holiday.
func New(provider holidays.Provider, logger *zap.Logger) *Resolver {
	return &Resolver{
		holidays: provider,
		logger:   logger,
	}
}

type classification struct {
	dayType  schedule.DayType
	source   Source
	holiday  *holidays.Holiday
	override *schedule.Override
}

// ResolveDayType returns the whole-day classification of date. Precedence,
// first match wins: full-day override, public holiday of the owner's region,
// weekday config, hard default.
func (r *Resolver) ResolveDayType(state *schedule.State, date time.Time) (schedule.DayType, error) {
	c, err := r.classify(state, dateutil.StartOfDay(date))
	if err != nil {
		return schedule.DayType{}, err
	}
	return c.dayType, nil
}

func (r *Resolver) classify(state *schedule.State, date time.Time) (classification, error) {
	if o, ok := state.Override(date, schedule.PeriodFull); ok {
		dt, found := state.DayType(o.DayTypeID)
		if !found {
			return classification{}, &schedule.NotFoundError{Kind: "day type", Key: o.DayTypeID}
		}
		return classification{dayType: dt, source: SourceOverride, override: &o}, nil
	}

	if region := state.Settings.Region; region != "" && r.holidays != nil {
		h, err := r.holidays.Lookup(region, date)
		switch {
		case errors.Is(err, holidays.ErrUnsupportedRegion):
			// A region without holiday data has no holidays
			r.logger.Debug("No holiday data for region",
				zap.String("region", region),
				zap.String("date", dateutil.Key(date)))
			h = nil
		case err != nil:
			return classification{}, fmt.Errorf("holiday lookup for %s %s: %w", region, dateutil.Key(date), err)
		}
		if h != nil {
			dt, err := state.Baseline(schedule.KeyHoliday, schedule.NameHoliday)
			if err != nil {
				return classification{}, err
			}
			return classification{dayType: dt, source: SourceHoliday, holiday: h}, nil
		}
	}

	dt, source, err := weekdayDayType(state, dateutil.WeekdayIndex(date))
	if err != nil {
		return classification{}, err
	}
	return classification{dayType: dt, source: source}, nil
}

// weekdayDayType resolves the generic day type of a weekday, ignoring dates
func weekdayDayType(state *schedule.State, weekday int) (schedule.DayType, Source, error) {
	if cfg, ok := state.Weekday(weekday); ok {
		dt, found := state.DayType(cfg.BaseDayTypeID)
		if !found {
			return schedule.DayType{}, "", &schedule.NotFoundError{Kind: "day type", Key: cfg.BaseDayTypeID}
		}
		return dt, SourceWeekday, nil
	}

	dt, err := state.HardDefault(weekday)
	if err != nil {
		return schedule.DayType{}, "", err
	}
	return dt, SourceDefault, nil
}

// blocksFor returns the block list a day type yields on a weekday. Off-like
// day types always use the Off Day template; work-like ones honor the
// weekday's custom list before falling back to their own template.
func blocksFor(state *schedule.State, dt schedule.DayType, weekday int) ([]schedule.Block, error) {
	if !dt.IsWorkLike() {
		off, err := state.Baseline(schedule.KeyOff, schedule.NameOff)
		if err != nil {
			return nil, err
		}
		return templateBlocks(state, off.ID), nil
	}

	if cfg, ok := state.Weekday(weekday); ok && cfg.HasCustom {
		return schedule.CloneBlocks(cfg.Blocks), nil
	}
	return templateBlocks(state, dt.ID), nil
}

func templateBlocks(state *schedule.State, dayTypeID string) []schedule.Block {
	tpl, ok := state.Template(dayTypeID)
	if !ok {
		return []schedule.Block{}
	}
	return schedule.CloneBlocks(tpl.Blocks)
}

// ResolveActivities returns the ordered blocks that apply on date
func (r *Resolver) ResolveActivities(state *schedule.State, date time.Time) ([]schedule.Block, error) {
	day, err := r.ResolveDay(state, date)
	if err != nil {
		return nil, err
	}
	return day.Blocks, nil
}

// ResolveDay returns the full descriptor of date.
//
// When the date has an am and/or pm override and no full override, it is
// split at noon: each half takes its override's day type, or the whole-day
// classification when that half has none. The am half keeps the blocks of its
// day type that start before 12:00, the pm half those starting at 12:00 or
// later.
func (r *Resolver) ResolveDay(state *schedule.State, date time.Time) (*DayView, error) {
	date = dateutil.StartOfDay(date)
	weekday := dateutil.WeekdayIndex(date)

	c, err := r.classify(state, date)
	if err != nil {
		return nil, err
	}

	view := &DayView{
		Date:        date,
		Weekday:     weekday,
		WeekdayName: dateutil.WeekdayName(weekday),
		DayType:     c.dayType,
		Source:      c.source,
		Holiday:     c.holiday,
		IsWeekend:   weekday >= 5,
	}
	if c.override != nil {
		view.Note = c.override.Note
	}

	halves, err := splitHalves(state, date, c)
	if err != nil {
		return nil, err
	}

	if halves == nil {
		view.Blocks, err = blocksFor(state, c.dayType, weekday)
		if err != nil {
			return nil, err
		}
	} else {
		view.Halves = halves
		view.Blocks, err = composeHalves(state, *halves, weekday)
		if err != nil {
			return nil, err
		}
	}

	for _, b := range view.Blocks {
		view.PlannedMinutes += b.Duration()
	}

	return view, nil
}

func splitHalves(state *schedule.State, date time.Time, c classification) (*Halves, error) {
	if c.source == SourceOverride {
		return nil, nil
	}

	am, hasAM := state.Override(date, schedule.PeriodAM)
	pm, hasPM := state.Override(date, schedule.PeriodPM)
	if !hasAM && !hasPM {
		return nil, nil
	}

	halves := &Halves{AM: c.dayType, PM: c.dayType}
	if hasAM {
		dt, ok := state.DayType(am.DayTypeID)
		if !ok {
			return nil, &schedule.NotFoundError{Kind: "day type", Key: am.DayTypeID}
		}
		halves.AM = dt
	}
	if hasPM {
		dt, ok := state.DayType(pm.DayTypeID)
		if !ok {
			return nil, &schedule.NotFoundError{Kind: "day type", Key: pm.DayTypeID}
		}
		halves.PM = dt
	}
	return halves, nil
}

func composeHalves(state *schedule.State, halves Halves, weekday int) ([]schedule.Block, error) {
	amBlocks, err := blocksFor(state, halves.AM, weekday)
	if err != nil {
		return nil, err
	}
	pmBlocks, err := blocksFor(state, halves.PM, weekday)
	if err != nil {
		return nil, err
	}

	out := make([]schedule.Block, 0, len(amBlocks)+len(pmBlocks))
	for _, b := range amBlocks {
		if b.Start < schedule.Noon {
			out = append(out, b)
		}
	}
	for _, b := range pmBlocks {
		if b.Start >= schedule.Noon {
			out = append(out, b)
		}
	}
	schedule.SortBlocks(out)
	return out, nil
}

// share is a weighted day type contribution used by the statistics
type share struct {
	dayType schedule.DayType
	weight  float64
}

// shares classifies date for statistics: one full share, or two half shares
// on split dates
func (r *Resolver) shares(state *schedule.State, date time.Time) ([]share, error) {
	c, err := r.classify(state, date)
	if err != nil {
		return nil, err
	}
	halves, err := splitHalves(state, date, c)
	if err != nil {
		return nil, err
	}
	return splitShares(c.dayType, halves), nil
}

// viewShares derives the statistics shares of an already resolved day
func viewShares(day *DayView) []share {
	return splitShares(day.DayType, day.Halves)
}

func splitShares(whole schedule.DayType, halves *Halves) []share {
	if halves == nil {
		return []share{{dayType: whole, weight: 1}}
	}
	return []share{{dayType: halves.AM, weight: 0.5}, {dayType: halves.PM, weight: 0.5}}
}
