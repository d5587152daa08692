package transfer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
)

// Version is the only document version this build reads and writes
const Version = 1

// Document is the portable snapshot of one owner's planner state
type Document struct {
	Version    int                 `json:"version" yaml:"version"`
	Owner      string              `json:"owner" yaml:"owner"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Settings   schedule.Settings   `json:"settings" yaml:"settings"`
	Categories []schedule.Category `json:"categories" yaml:"categories"`
	DayTypes   []schedule.DayType  `json:"day_types" yaml:"day_types"`
	Templates  []TemplateEntry     `json:"templates" yaml:"templates"`
	Weekdays   []WeekdayEntry      `json:"weekdays" yaml:"weekdays"`
	Overrides  []OverrideEntry     `json:"overrides" yaml:"overrides"`
}

// TemplateEntry is the block list of one day type
type TemplateEntry struct {
	DayTypeID string           `json:"day_type_id" yaml:"day_type_id"`
	Blocks    []schedule.Block `json:"blocks" yaml:"blocks"`
}

// WeekdayEntry is one weekday config; Weekday is 0 = Monday .. 6 = Sunday
type WeekdayEntry struct {
	Weekday       int              `json:"weekday" yaml:"weekday"`
	BaseDayTypeID string           `json:"base_day_type_id" yaml:"base_day_type_id"`
	Custom        bool             `json:"custom" yaml:"custom"`
	Blocks        []schedule.Block `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

// OverrideEntry is one dated override
type OverrideEntry struct {
	Date      string          `json:"date" yaml:"date"`
	Period    schedule.Period `json:"period" yaml:"period"`
	DayTypeID string          `json:"day_type_id" yaml:"day_type_id"`
	Note      string          `json:"note,omitempty" yaml:"note,omitempty"`
}

// FromState builds a document from state. Entries are emitted in a stable
// order so repeated exports of the same state are identical apart from
// ExportedAt.
func FromState(state *schedule.State, exportedAt time.Time) *Document {
	doc := &Document{
		Version:    Version,
		Owner:      state.Owner,
		ExportedAt: exportedAt.UTC(),
		Settings:   state.Settings,
		Categories: append([]schedule.Category{}, state.Categories...),
		DayTypes:   append([]schedule.DayType{}, state.DayTypes...),
		Templates:  []TemplateEntry{},
		Weekdays:   []WeekdayEntry{},
		Overrides:  []OverrideEntry{},
	}

	ids := make([]string, 0, len(state.Templates))
	for id := range state.Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		doc.Templates = append(doc.Templates, TemplateEntry{
			DayTypeID: id,
			Blocks:    schedule.CloneBlocks(state.Templates[id].Blocks),
		})
	}

	for wd := 0; wd < 7; wd++ {
		cfg, ok := state.Weekdays[wd]
		if !ok {
			continue
		}
		doc.Weekdays = append(doc.Weekdays, WeekdayEntry{
			Weekday:       wd,
			BaseDayTypeID: cfg.BaseDayTypeID,
			Custom:        cfg.HasCustom,
			Blocks:        schedule.CloneBlocks(cfg.Blocks),
		})
	}

	for _, o := range state.SortedOverrides() {
		doc.Overrides = append(doc.Overrides, OverrideEntry{
			Date:      dateutil.Key(o.Date),
			Period:    o.Period,
			DayTypeID: o.DayTypeID,
			Note:      o.Note,
		})
	}

	return doc
}

// ToState rebuilds the state of owner from the document and validates it as a
// whole. Malformed values yield a *schedule.ValidationError, broken or
// duplicated references a *schedule.IntegrityError. On error nothing is
// returned, so a caller can never persist a partial import.
func (d *Document) ToState(owner string) (*schedule.State, error) {
	if d.Version != Version {
		return nil, &schedule.ValidationError{Field: "version", Reason: fmt.Sprintf("unsupported document version %d", d.Version)}
	}
	if owner == "" {
		owner = d.Owner
	}
	if owner == "" {
		return nil, &schedule.ValidationError{Field: "owner", Reason: "must not be empty"}
	}

	state := schedule.NewState(owner)
	state.Settings = d.Settings
	state.Categories = append([]schedule.Category{}, d.Categories...)
	state.DayTypes = append([]schedule.DayType{}, d.DayTypes...)

	var problems []string

	for _, entry := range d.Templates {
		if _, dup := state.Templates[entry.DayTypeID]; dup {
			problems = append(problems, fmt.Sprintf("template for day type %q is duplicated", entry.DayTypeID))
			continue
		}
		state.Templates[entry.DayTypeID] = &schedule.Template{
			DayTypeID: entry.DayTypeID,
			Blocks:    schedule.CloneBlocks(entry.Blocks),
		}
	}

	for _, entry := range d.Weekdays {
		if _, dup := state.Weekdays[entry.Weekday]; dup {
			problems = append(problems, fmt.Sprintf("weekday %d is duplicated", entry.Weekday))
			continue
		}
		state.Weekdays[entry.Weekday] = &schedule.WeekdayConfig{
			Weekday:       entry.Weekday,
			BaseDayTypeID: entry.BaseDayTypeID,
			HasCustom:     entry.Custom,
			Blocks:        schedule.CloneBlocks(entry.Blocks),
		}
	}

	for _, entry := range d.Overrides {
		date, err := dateutil.ParseDate(entry.Date)
		if err != nil {
			return nil, &schedule.ValidationError{Field: "override date", Reason: err.Error()}
		}
		period := entry.Period
		if period == "" {
			period = schedule.PeriodFull
		}
		o := schedule.Override{Date: date, Period: period, DayTypeID: entry.DayTypeID, Note: entry.Note}
		if _, dup := state.Overrides[o.Key()]; dup {
			problems = append(problems, fmt.Sprintf("override %s/%s is duplicated", o.Key().Date, period))
			continue
		}
		state.SetOverride(o)
	}

	for _, key := range state.MissingBaselines() {
		problems = append(problems, fmt.Sprintf("baseline day type %q is missing", key))
	}

	if err := state.Check(); err != nil {
		var integrity *schedule.IntegrityError
		if !errors.As(err, &integrity) {
			return nil, err
		}
		problems = append(problems, integrity.Problems...)
	}
	if len(problems) > 0 {
		return nil, &schedule.IntegrityError{Problems: problems}
	}

	return state, nil
}
