package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the full scheduling snapshot of one owner. The resolver only reads
// it; the planner clones it, mutates the clone and saves it.
type State struct {
	Owner      string
	Settings   Settings
	Categories []Category
	DayTypes   []DayType
	Templates  map[string]*Template
	Weekdays   map[int]*WeekdayConfig
	Overrides  map[OverrideKey]Override
	UpdatedAt  time.Time
}

// NewState returns an empty state for owner
func NewState(owner string) *State {
	return &State{
		Owner:     owner,
		Templates: make(map[string]*Template),
		Weekdays:  make(map[int]*WeekdayConfig),
		Overrides: make(map[OverrideKey]Override),
	}
}

// NewID returns a fresh entity identifier
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	out := NewState(s.Owner)
	out.Settings = s.Settings
	out.UpdatedAt = s.UpdatedAt
	out.Categories = append([]Category(nil), s.Categories...)
	out.DayTypes = append([]DayType(nil), s.DayTypes...)

	for id, tpl := range s.Templates {
		out.Templates[id] = &Template{DayTypeID: tpl.DayTypeID, Blocks: CloneBlocks(tpl.Blocks)}
	}
	for wd, cfg := range s.Weekdays {
		out.Weekdays[wd] = &WeekdayConfig{
			Weekday:       cfg.Weekday,
			BaseDayTypeID: cfg.BaseDayTypeID,
			HasCustom:     cfg.HasCustom,
			Blocks:        CloneBlocks(cfg.Blocks),
		}
	}
	for key, o := range s.Overrides {
		out.Overrides[key] = o
	}

	return out
}

// DayType returns the day type with the given ID
func (s *State) DayType(id string) (DayType, bool) {
	for _, dt := range s.DayTypes {
		if dt.ID == id {
			return dt, true
		}
	}
	return DayType{}, false
}

// DayTypeByKey returns the day type with the given stable key
func (s *State) DayTypeByKey(key string) (DayType, bool) {
	for _, dt := range s.DayTypes {
		if dt.Key == key {
			return dt, true
		}
	}
	return DayType{}, false
}

// DayTypeByName looks a day type up by display name, case-insensitively
func (s *State) DayTypeByName(name string) (DayType, bool) {
	for _, dt := range s.DayTypes {
		if strings.EqualFold(dt.Name, name) {
			return dt, true
		}
	}
	return DayType{}, false
}

// LookupDayType accepts an ID, a key or a display name
func (s *State) LookupDayType(ref string) (DayType, error) {
	if dt, ok := s.DayType(ref); ok {
		return dt, nil
	}
	if dt, ok := s.DayTypeByKey(ref); ok {
		return dt, nil
	}
	if dt, ok := s.DayTypeByName(ref); ok {
		return dt, nil
	}
	return DayType{}, &NotFoundError{Kind: "day type", Key: ref}
}

// Baseline returns the day type with the given key, or a ConfigurationError
// naming the display name that was expected
func (s *State) Baseline(key, name string) (DayType, error) {
	if dt, ok := s.DayTypeByKey(key); ok {
		return dt, nil
	}
	return DayType{}, &ConfigurationError{Missing: name}
}

// DefaultFor returns the default day type for unmapped weekdays of the given
// kind. The day type flagged Default wins, then the baseline work/off type.
func (s *State) DefaultFor(kind Kind) (DayType, error) {
	for _, dt := range s.DayTypes {
		if dt.Default && dt.Kind == kind {
			return dt, nil
		}
	}
	if kind == WorkLike {
		return s.Baseline(KeyWork, NameWork)
	}
	return s.Baseline(KeyOff, NameOff)
}

// HardDefault returns the day type of a weekday that has no config:
// Monday..Friday are work-like, Saturday and Sunday off-like
func (s *State) HardDefault(weekday int) (DayType, error) {
	if weekday < 5 {
		return s.DefaultFor(WorkLike)
	}
	return s.DefaultFor(OffLike)
}

// Category returns the category with the given ID
func (s *State) Category(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryByName looks a category up by name, case-insensitively
func (s *State) CategoryByName(name string) (Category, bool) {
	for _, c := range s.Categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// Weekday returns the config of a Monday-based weekday if one exists
func (s *State) Weekday(weekday int) (*WeekdayConfig, bool) {
	cfg, ok := s.Weekdays[weekday]
	return cfg, ok
}

// EnsureWeekday returns the config of weekday, creating it with the hard
// default base type when absent
func (s *State) EnsureWeekday(weekday int) (*WeekdayConfig, error) {
	if err := ValidateWeekday(weekday); err != nil {
		return nil, err
	}
	if cfg, ok := s.Weekdays[weekday]; ok {
		return cfg, nil
	}

	base, err := s.HardDefault(weekday)
	if err != nil {
		return nil, err
	}
	cfg := &WeekdayConfig{Weekday: weekday, BaseDayTypeID: base.ID}
	s.Weekdays[weekday] = cfg
	return cfg, nil
}

// Template returns the template of a day type if it was ever created
func (s *State) Template(dayTypeID string) (*Template, bool) {
	tpl, ok := s.Templates[dayTypeID]
	return tpl, ok
}

// EnsureTemplate returns the template of a day type, creating an empty one
// the first time it is needed
func (s *State) EnsureTemplate(dayTypeID string) (*Template, error) {
	if _, ok := s.DayType(dayTypeID); !ok {
		return nil, &NotFoundError{Kind: "day type", Key: dayTypeID}
	}
	if tpl, ok := s.Templates[dayTypeID]; ok {
		return tpl, nil
	}
	tpl := &Template{DayTypeID: dayTypeID}
	s.Templates[dayTypeID] = tpl
	return tpl, nil
}

// Override returns the override stored for (date, period)
func (s *State) Override(date time.Time, period Period) (Override, bool) {
	o, ok := s.Overrides[OverrideKey{Date: date.Format("2006-01-02"), Period: period}]
	return o, ok
}

// SetOverride inserts or replaces an override
func (s *State) SetOverride(o Override) {
	s.Overrides[o.Key()] = o
}

// DeleteOverride removes an override and reports whether it existed
func (s *State) DeleteOverride(date time.Time, period Period) bool {
	key := OverrideKey{Date: date.Format("2006-01-02"), Period: period}
	if _, ok := s.Overrides[key]; !ok {
		return false
	}
	delete(s.Overrides, key)
	return true
}

// SortedOverrides returns all overrides ordered by date, then period
func (s *State) SortedOverrides() []Override {
	out := make([]Override, 0, len(s.Overrides))
	for _, o := range s.Overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return periodRank(out[i].Period) < periodRank(out[j].Period)
	})
	return out
}

func periodRank(p Period) int {
	switch p {
	case PeriodFull:
		return 0
	case PeriodAM:
		return 1
	default:
		return 2
	}
}

// BlockContainer names where a block lives
type BlockContainer struct {
	DayTypeID string // set for template blocks
	Weekday   int    // set for weekday blocks, -1 otherwise
}

// FindBlock locates a block by ID across templates and weekday configs and
// returns the slice that holds it together with its index
func (s *State) FindBlock(id string) (*[]Block, int, BlockContainer, bool) {
	for dtID, tpl := range s.Templates {
		for i := range tpl.Blocks {
			if tpl.Blocks[i].ID == id {
				return &tpl.Blocks, i, BlockContainer{DayTypeID: dtID, Weekday: -1}, true
			}
		}
	}
	for wd, cfg := range s.Weekdays {
		for i := range cfg.Blocks {
			if cfg.Blocks[i].ID == id {
				return &cfg.Blocks, i, BlockContainer{Weekday: wd}, true
			}
		}
	}
	return nil, -1, BlockContainer{}, false
}

// NextSortOrder returns a sort order placing a new block after existing ones
func NextSortOrder(blocks []Block) int {
	next := 0
	for _, b := range blocks {
		if b.SortOrder >= next {
			next = b.SortOrder + 1
		}
	}
	return next
}
