package holidays

import (
	"fmt"
	"sort"
	"time"
)

type rule func(year int) (time.Time, string)

func fixed(month time.Month, day int, name string) rule {
	return func(year int) (time.Time, string) {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), name
	}
}

func easterOffset(days int, name string) rule {
	return func(year int) (time.Time, string) {
		return Easter(year).AddDate(0, 0, days), name
	}
}

var germanFederal = []rule{
	fixed(time.January, 1, "Neujahr"),
	easterOffset(-2, "Karfreitag"),
	easterOffset(1, "Ostermontag"),
	fixed(time.May, 1, "Tag der Arbeit"),
	easterOffset(39, "Christi Himmelfahrt"),
	easterOffset(50, "Pfingstmontag"),
	fixed(time.October, 3, "Tag der Deutschen Einheit"),
	fixed(time.December, 25, "1. Weihnachtstag"),
	fixed(time.December, 26, "2. Weihnachtstag"),
}

var builtinRules = map[string][]rule{
	"DE": germanFederal,
	"DE-NW": append(append([]rule{}, germanFederal...),
		easterOffset(60, "Fronleichnam"),
		fixed(time.November, 1, "Allerheiligen"),
	),
}

// Builtin computes holidays from fixed-date and Easter-based rules
type Builtin struct{}

// NewBuiltin creates the rule-based provider
func NewBuiltin() *Builtin {
	return &Builtin{}
}

// Regions lists the regions with built-in rules
func (b *Builtin) Regions() []string {
	out := make([]string, 0, len(builtinRules))
	for region := range builtinRules {
		out = append(out, region)
	}
	sort.Strings(out)
	return out
}

// Year returns every holiday of region in year
func (b *Builtin) Year(region string, year int) ([]Holiday, error) {
	region = NormalizeRegion(region)
	rules, ok := builtinRules[region]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, region)
	}

	out := make([]Holiday, 0, len(rules))
	for _, r := range rules {
		date, name := r(year)
		out = append(out, Holiday{Region: region, Date: date, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Lookup returns the holiday on date
func (b *Builtin) Lookup(region string, date time.Time) (*Holiday, error) {
	days, err := b.Year(region, date.Year())
	if err != nil {
		return nil, err
	}
	key := dateKey(date)
	for i := range days {
		if dateKey(days[i].Date) == key {
			return &days[i], nil
		}
	}
	return nil, nil
}

// Range returns the holidays between from and to inclusive
func (b *Builtin) Range(region string, from, to time.Time) ([]Holiday, error) {
	from, to = midnight(from), midnight(to)
	var out []Holiday
	for year := from.Year(); year <= to.Year(); year++ {
		days, err := b.Year(region, year)
		if err != nil {
			return nil, err
		}
		for _, h := range days {
			if !h.Date.Before(from) && !h.Date.After(to) {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

// Easter returns Easter Sunday of year using the Meeus/Jones/Butcher algorithm
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
