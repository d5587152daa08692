package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Kind is the polarity of a day type. Weekday customizations only apply to
// work-like days.
type Kind string

const (
	WorkLike Kind = "work"
	OffLike  Kind = "off"
)

// Valid reports whether k is one of the two known kinds
func (k Kind) Valid() bool {
	return k == WorkLike || k == OffLike
}

// Stable keys of the baseline day types. Statistics bucket on these, never on
// display names.
const (
	KeyWork     = "work"
	KeyOff      = "off"
	KeyHoliday  = "holiday"
	KeyVacation = "vacation"
	KeySick     = "sick"
)

// Display names of the baseline day types
const (
	NameWork     = "Work Day"
	NameOff      = "Off Day"
	NameHoliday  = "Public Holiday"
	NameVacation = "Vacation"
	NameSick     = "Sick Day"
)

// Period selects the part of a date an override applies to
type Period string

const (
	PeriodFull Period = "full"
	PeriodAM   Period = "am"
	PeriodPM   Period = "pm"
)

// ParsePeriod parses full/am/pm; an empty value means full
func ParsePeriod(value string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PeriodFull, nil
	case PeriodFull, PeriodAM, PeriodPM:
		return p, nil
	default:
		return "", &ValidationError{Field: "period", Reason: fmt.Sprintf("%q must be full, am or pm", value)}
	}
}

// Valid reports whether p is a known period
func (p Period) Valid() bool {
	return p == PeriodFull || p == PeriodAM || p == PeriodPM
}

// Category tags blocks for grouping and statistics
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// DayType is a named classification of a day
type DayType struct {
	ID      string `json:"id" yaml:"id"`
	Key     string `json:"key" yaml:"key"`
	Name    string `json:"name" yaml:"name"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Color   string `json:"color,omitempty" yaml:"color,omitempty"`
	Default bool   `json:"default,omitempty" yaml:"default,omitempty"`
}

// IsWorkLike reports whether weekday customization applies to this day type
func (d DayType) IsWorkLike() bool {
	return d.Kind == WorkLike
}

// Block is a named time interval on the minute-of-day line
type Block struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	CategoryID *string `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	Start      Minute  `json:"start" yaml:"start"`
	End        Minute  `json:"end" yaml:"end"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty"`
	SortOrder  int     `json:"sort_order" yaml:"sort_order"`
}

// Overnight reports whether the block spans midnight
func (b Block) Overnight() bool {
	return b.End < b.Start
}

// Duration returns the block length in minutes
func (b Block) Duration() int {
	if b.Overnight() {
		return (MinutesPerDay - int(b.Start)) + int(b.End)
	}
	return int(b.End - b.Start)
}

// Clone returns a copy that shares no pointers with b
func (b Block) Clone() Block {
	if b.CategoryID != nil {
		id := *b.CategoryID
		b.CategoryID = &id
	}
	return b
}

// SortBlocks orders blocks by start time, then sort order
func SortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Start != blocks[j].Start {
			return blocks[i].Start < blocks[j].Start
		}
		return blocks[i].SortOrder < blocks[j].SortOrder
	})
}

// CloneBlocks deep-copies blocks and returns them in display order
func CloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	SortBlocks(out)
	return out
}

// Template is the canonical block list owned by a day type
type Template struct {
	DayTypeID string
	Blocks    []Block
}

// WeekdayConfig holds the per-weekday base day type and optional custom blocks.
// Weekday is Monday-based: 0 = Monday ... 6 = Sunday.
type WeekdayConfig struct {
	Weekday       int
	BaseDayTypeID string
	HasCustom     bool
	Blocks        []Block
}

// Override assigns a day type to one date, or one half of it
type Override struct {
	Date      time.Time
	Period    Period
	DayTypeID string
	Note      string
}

// OverrideKey identifies an override row
type OverrideKey struct {
	Date   string
	Period Period
}

// Key returns the unique key of the override
func (o Override) Key() OverrideKey {
	return OverrideKey{Date: o.Date.Format("2006-01-02"), Period: o.Period}
}

// Settings are per-owner preferences that drive resolver defaults
type Settings struct {
	Region      string `json:"region" yaml:"region"`
	WeekStart   int    `json:"week_start" yaml:"week_start"`
	DefaultView string `json:"default_view,omitempty" yaml:"default_view,omitempty"`
	Onboarded   bool   `json:"onboarded" yaml:"onboarded"`
}

var (
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	slugPattern  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Views accepted in Settings.DefaultView
var Views = []string{"day", "week", "month", "year"}

// ValidColor reports whether color is empty or a #RRGGBB value
func ValidColor(color string) bool {
	return color == "" || colorPattern.MatchString(color)
}

// Slug derives a stable day type key from a display name
func Slug(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
