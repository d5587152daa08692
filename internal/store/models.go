package store

import (
	"time"

	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
)

// ownerRow holds per-owner settings and marks the owner as existing
type ownerRow struct {
	Owner       string `gorm:"primaryKey;size:128"`
	Region      string
	WeekStart   int
	DefaultView string
	Onboarded   bool
	UpdatedAt   time.Time
}

func (ownerRow) TableName() string { return "owners" }

type categoryRow struct {
	Owner string `gorm:"primaryKey;size:128"`
	ID    string `gorm:"primaryKey;size:64"`
	Name  string
	Color string
}

func (categoryRow) TableName() string { return "categories" }

type dayTypeRow struct {
	Owner     string `gorm:"primaryKey;size:128"`
	ID        string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"column:type_key;index"`
	Name      string
	Kind      string
	Color     string
	IsDefault bool `gorm:"default:false"`
	Position  int
}

func (dayTypeRow) TableName() string { return "day_types" }

type templateRow struct {
	Owner     string `gorm:"primaryKey;size:128"`
	DayTypeID string `gorm:"primaryKey;size:64"`
}

func (templateRow) TableName() string { return "day_templates" }

type weekdayRow struct {
	Owner         string `gorm:"primaryKey;size:128"`
	Weekday       int    `gorm:"primaryKey;autoIncrement:false"`
	BaseDayTypeID string
	HasCustom     bool `gorm:"default:false"`
}

func (weekdayRow) TableName() string { return "weekday_configs" }

// blockRow belongs to a template when DayTypeID is set, otherwise to the
// weekday config in Weekday
type blockRow struct {
	Owner       string  `gorm:"primaryKey;size:128"`
	ID          string  `gorm:"primaryKey;size:64"`
	DayTypeID   *string `gorm:"index"`
	Weekday     *int
	Name        string
	CategoryID  *string
	StartMinute int
	EndMinute   int
	Color       string
	SortOrder   int
}

func (blockRow) TableName() string { return "blocks" }

type overrideRow struct {
	Owner     string `gorm:"primaryKey;size:128"`
	Date      string `gorm:"primaryKey;size:10"`
	Period    string `gorm:"primaryKey;size:4"`
	DayTypeID string
	Note      string
}

func (overrideRow) TableName() string { return "date_overrides" }

type holidayRow struct {
	Region string `gorm:"primaryKey;size:16"`
	Date   string `gorm:"primaryKey;size:10"`
	Name   string
}

func (holidayRow) TableName() string { return "public_holidays" }

func allModels() []any {
	return []any{
		&ownerRow{}, &categoryRow{}, &dayTypeRow{}, &templateRow{},
		&weekdayRow{}, &blockRow{}, &overrideRow{}, &holidayRow{},
	}
}

func toBlockRow(owner string, b schedule.Block) blockRow {
	b = b.Clone()
	return blockRow{
		Owner:       owner,
		ID:          b.ID,
		Name:        b.Name,
		CategoryID:  b.CategoryID,
		StartMinute: int(b.Start),
		EndMinute:   int(b.End),
		Color:       b.Color,
		SortOrder:   b.SortOrder,
	}
}

func (r blockRow) toBlock() schedule.Block {
	return schedule.Block{
		ID:         r.ID,
		Name:       r.Name,
		CategoryID: r.CategoryID,
		Start:      schedule.Minute(r.StartMinute),
		End:        schedule.Minute(r.EndMinute),
		Color:      r.Color,
		SortOrder:  r.SortOrder,
	}
}

// rowsFromState flattens a state into table rows
type stateRows struct {
	owner      ownerRow
	categories []categoryRow
	dayTypes   []dayTypeRow
	templates  []templateRow
	weekdays   []weekdayRow
	blocks     []blockRow
	overrides  []overrideRow
}

func rowsFromState(state *schedule.State, now time.Time) stateRows {
	owner := state.Owner
	rows := stateRows{
		owner: ownerRow{
			Owner:       owner,
			Region:      state.Settings.Region,
			WeekStart:   state.Settings.WeekStart,
			DefaultView: state.Settings.DefaultView,
			Onboarded:   state.Settings.Onboarded,
			UpdatedAt:   now,
		},
	}

	for _, c := range state.Categories {
		rows.categories = append(rows.categories, categoryRow{Owner: owner, ID: c.ID, Name: c.Name, Color: c.Color})
	}
	for i, dt := range state.DayTypes {
		rows.dayTypes = append(rows.dayTypes, dayTypeRow{
			Owner: owner, ID: dt.ID, Key: dt.Key, Name: dt.Name,
			Kind: string(dt.Kind), Color: dt.Color, IsDefault: dt.Default, Position: i,
		})
	}
	for id, tpl := range state.Templates {
		rows.templates = append(rows.templates, templateRow{Owner: owner, DayTypeID: id})
		for _, b := range tpl.Blocks {
			row := toBlockRow(owner, b)
			dayTypeID := id
			row.DayTypeID = &dayTypeID
			rows.blocks = append(rows.blocks, row)
		}
	}
	for wd, cfg := range state.Weekdays {
		rows.weekdays = append(rows.weekdays, weekdayRow{Owner: owner, Weekday: wd, BaseDayTypeID: cfg.BaseDayTypeID, HasCustom: cfg.HasCustom})
		for _, b := range cfg.Blocks {
			row := toBlockRow(owner, b)
			weekday := wd
			row.Weekday = &weekday
			rows.blocks = append(rows.blocks, row)
		}
	}
	for _, o := range state.Overrides {
		rows.overrides = append(rows.overrides, overrideRow{
			Owner: owner, Date: dateutil.Key(o.Date), Period: string(o.Period),
			DayTypeID: o.DayTypeID, Note: o.Note,
		})
	}

	return rows
}
