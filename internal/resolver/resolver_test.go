package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/schedule"
	"go.uber.org/zap"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dayType(t *testing.T, state *schedule.State, key string) schedule.DayType {
	t.Helper()
	dt, ok := state.DayTypeByKey(key)
	if !ok {
		t.Fatalf("day type %q not seeded", key)
	}
	return dt
}

// fixtureState builds an owner with Work Day / Off Day templates, a Tuesday
// customized with a piano lesson, and region DE-NW.
func fixtureState(t *testing.T) *schedule.State {
	t.Helper()

	state := schedule.NewState("alice")
	state.Seed()
	state.Settings.Region = "DE-NW"

	music := schedule.Category{ID: "cat-music", Name: "Music", Color: "#AA00FF"}
	state.Categories = append(state.Categories, music)

	work := dayType(t, state, schedule.KeyWork)
	off := dayType(t, state, schedule.KeyOff)

	workTpl, _ := state.EnsureTemplate(work.ID)
	workTpl.Blocks = []schedule.Block{
		{ID: "w-work", Name: "Work", Start: 540, End: 1020},
		{ID: "w-commute", Name: "Commute", Start: 480, End: 540},
		{ID: "w-gym", Name: "Gym", Start: 1080, End: 1140},
	}
	offTpl, _ := state.EnsureTemplate(off.ID)
	offTpl.Blocks = []schedule.Block{
		{ID: "o-brunch", Name: "Brunch", Start: 600, End: 690},
		{ID: "o-walk", Name: "Walk", Start: 900, End: 960},
	}

	tuesday, err := state.EnsureWeekday(1)
	if err != nil {
		t.Fatalf("EnsureWeekday() error = %v", err)
	}
	tuesday.HasCustom = true
	tuesday.Blocks = []schedule.Block{
		{ID: "t-piano", Name: "Piano", CategoryID: &music.ID, Start: 1200, End: 1320},
		{ID: "t-work", Name: "Work", Start: 540, End: 1020},
	}

	return state
}

func newResolver() *Resolver {
	return New(holidays.NewBuiltin(), zap.NewNop())
}

func blockIDs(blocks []schedule.Block) []string {
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

func equalIDs(got []schedule.Block, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].ID != want[i] {
			return false
		}
	}
	return true
}

func TestResolveDayType_Precedence(t *testing.T) {
	state := fixtureState(t)
	vacation := dayType(t, state, schedule.KeyVacation)
	off := dayType(t, state, schedule.KeyOff)

	// Full-day vacation on Fronleichnam (holiday) and on a regular Monday
	state.SetOverride(schedule.Override{Date: date(2026, 6, 4), Period: schedule.PeriodFull, DayTypeID: vacation.ID})
	state.SetOverride(schedule.Override{Date: date(2026, 6, 8), Period: schedule.PeriodFull, DayTypeID: vacation.ID})
	// Wednesdays configured as Off Day
	state.Weekdays[2] = &schedule.WeekdayConfig{Weekday: 2, BaseDayTypeID: off.ID}

	r := newResolver()

	tests := []struct {
		name       string
		date       time.Time
		wantKey    string
		wantSource Source
	}{
		{"override beats holiday", date(2026, 6, 4), schedule.KeyVacation, SourceOverride},
		{"override beats weekday default", date(2026, 6, 8), schedule.KeyVacation, SourceOverride},
		{"holiday beats weekday", date(2026, 5, 14), schedule.KeyHoliday, SourceHoliday},
		{"holiday on a weekend still counts", date(2026, 11, 1), schedule.KeyHoliday, SourceHoliday},
		{"weekday config", date(2026, 6, 10), schedule.KeyOff, SourceWeekday},
		{"tuesday config keeps work base", date(2026, 6, 9), schedule.KeyWork, SourceWeekday},
		{"hard default Monday", date(2026, 6, 15), schedule.KeyWork, SourceDefault},
		{"hard default Saturday", date(2026, 6, 13), schedule.KeyOff, SourceDefault},
		{"hard default Sunday", date(2026, 6, 14), schedule.KeyOff, SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveDayType(state, tt.date)
			if err != nil {
				t.Fatalf("ResolveDayType() error = %v", err)
			}
			if got.Key != tt.wantKey {
				t.Errorf("ResolveDayType(%s) = %s, want %s", tt.date.Format("2006-01-02 Mon"), got.Key, tt.wantKey)
			}

			day, err := r.ResolveDay(state, tt.date)
			if err != nil {
				t.Fatalf("ResolveDay() error = %v", err)
			}
			if day.Source != tt.wantSource {
				t.Errorf("ResolveDay(%s).Source = %s, want %s", tt.date.Format("2006-01-02"), day.Source, tt.wantSource)
			}
		})
	}
}

func TestResolveDayType_HalfDayOverridesDoNotChangeWholeDay(t *testing.T) {
	state := fixtureState(t)
	vacation := dayType(t, state, schedule.KeyVacation)
	state.SetOverride(schedule.Override{Date: date(2026, 6, 10), Period: schedule.PeriodAM, DayTypeID: vacation.ID})

	got, err := newResolver().ResolveDayType(state, date(2026, 6, 10))
	if err != nil {
		t.Fatalf("ResolveDayType() error = %v", err)
	}
	if got.Key != schedule.KeyWork {
		t.Errorf("ResolveDayType() = %s, want work (am override is half-day only)", got.Key)
	}
}

func TestResolveDayType_MissingPublicHoliday(t *testing.T) {
	state := fixtureState(t)
	holiday := dayType(t, state, schedule.KeyHoliday)
	var kept []schedule.DayType
	for _, dt := range state.DayTypes {
		if dt.ID != holiday.ID {
			kept = append(kept, dt)
		}
	}
	state.DayTypes = kept

	r := newResolver()
	if _, err := r.ResolveDayType(state, date(2026, 12, 25)); !schedule.IsConfiguration(err) {
		t.Errorf("ResolveDayType(Christmas) error = %v, want ConfigurationError", err)
	}
	if _, err := r.ResolveDayType(state, date(2026, 12, 22)); err != nil {
		t.Errorf("ResolveDayType(regular day) error = %v, want nil", err)
	}
}

func TestResolveDayType_NoRegionSkipsHolidays(t *testing.T) {
	state := fixtureState(t)
	state.Settings.Region = ""

	got, err := newResolver().ResolveDayType(state, date(2026, 12, 25))
	if err != nil {
		t.Fatalf("ResolveDayType() error = %v", err)
	}
	if got.Key != schedule.KeyWork {
		t.Errorf("ResolveDayType() = %s, want work without a region", got.Key)
	}
}

func TestResolveActivities(t *testing.T) {
	state := fixtureState(t)
	sick := dayType(t, state, schedule.KeySick)
	state.SetOverride(schedule.Override{Date: date(2026, 6, 16), Period: schedule.PeriodFull, DayTypeID: sick.ID})

	remote := schedule.DayType{ID: "dt-remote", Key: "remote", Name: "Remote Day", Kind: schedule.WorkLike}
	state.DayTypes = append(state.DayTypes, remote)
	state.SetOverride(schedule.Override{Date: date(2026, 6, 17), Period: schedule.PeriodFull, DayTypeID: remote.ID})

	r := newResolver()

	tests := []struct {
		name string
		date time.Time
		want []string
	}{
		{"work day uses work template", date(2026, 6, 15), []string{"w-commute", "w-work", "w-gym"}},
		{"custom tuesday is returned verbatim", date(2026, 6, 9), []string{"t-work", "t-piano"}},
		{"sick tuesday ignores customization", date(2026, 6, 16), []string{"o-brunch", "o-walk"}},
		{"holiday uses off day template", date(2026, 6, 4), []string{"o-brunch", "o-walk"}},
		{"weekend uses off day template", date(2026, 6, 13), []string{"o-brunch", "o-walk"}},
		{"work-like day type without template is empty", date(2026, 6, 17), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveActivities(state, tt.date)
			if err != nil {
				t.Fatalf("ResolveActivities() error = %v", err)
			}
			if got == nil {
				t.Fatal("ResolveActivities() returned nil, want empty slice")
			}
			if !equalIDs(got, tt.want...) {
				t.Errorf("ResolveActivities(%s) = %v, want %v", tt.date.Format("2006-01-02 Mon"), blockIDs(got), tt.want)
			}
		})
	}
}

func TestResolveActivities_ReturnsCopies(t *testing.T) {
	state := fixtureState(t)
	r := newResolver()

	got, err := r.ResolveActivities(state, date(2026, 6, 15))
	if err != nil {
		t.Fatalf("ResolveActivities() error = %v", err)
	}
	got[0].Name = "Mutated"

	work := dayType(t, state, schedule.KeyWork)
	for _, b := range state.Templates[work.ID].Blocks {
		if b.Name == "Mutated" {
			t.Fatal("resolved block aliases template storage")
		}
	}
}

// Tuesday piano lesson, public holiday override on one Tuesday.
func TestPianoScenario(t *testing.T) {
	state := fixtureState(t)
	holiday := dayType(t, state, schedule.KeyHoliday)
	tuesday := date(2026, 6, 23)
	state.SetOverride(schedule.Override{Date: tuesday, Period: schedule.PeriodFull, DayTypeID: holiday.ID})

	r := newResolver()

	blocks, err := r.ResolveActivities(state, tuesday)
	if err != nil {
		t.Fatalf("ResolveActivities() error = %v", err)
	}
	for _, b := range blocks {
		if b.Name == "Piano" {
			t.Errorf("holiday Tuesday contains piano: %v", blockIDs(blocks))
		}
	}
	if !equalIDs(blocks, "o-brunch", "o-walk") {
		t.Errorf("holiday Tuesday = %v, want off day template", blockIDs(blocks))
	}

	week, err := r.ResolveWeek(state)
	if err != nil {
		t.Fatalf("ResolveWeek() error = %v", err)
	}
	generic := week[1]
	if generic.Name != "Tuesday" || !generic.HasCustom {
		t.Fatalf("week[1] = %s custom=%v, want custom Tuesday", generic.Name, generic.HasCustom)
	}
	if !equalIDs(generic.Blocks, "t-work", "t-piano") {
		t.Errorf("generic Tuesday = %v, want work + piano", blockIDs(generic.Blocks))
	}
}

func TestResolveDay_HalfDayComposition(t *testing.T) {
	state := fixtureState(t)
	vacation := dayType(t, state, schedule.KeyVacation)
	wednesday := date(2026, 6, 10)
	state.SetOverride(schedule.Override{Date: wednesday, Period: schedule.PeriodPM, DayTypeID: vacation.ID, Note: "dentist"})

	day, err := newResolver().ResolveDay(state, wednesday)
	if err != nil {
		t.Fatalf("ResolveDay() error = %v", err)
	}
	if day.Halves == nil {
		t.Fatal("ResolveDay().Halves = nil, want split day")
	}
	if day.Halves.AM.Key != schedule.KeyWork || day.Halves.PM.Key != schedule.KeyVacation {
		t.Errorf("halves = %s/%s, want work/vacation", day.Halves.AM.Key, day.Halves.PM.Key)
	}
	// Morning blocks of the work template, afternoon blocks of the off template
	if !equalIDs(day.Blocks, "w-commute", "w-work", "o-walk") {
		t.Errorf("blocks = %v, want commute, work, walk", blockIDs(day.Blocks))
	}
	if day.PlannedMinutes != 60+480+60 {
		t.Errorf("PlannedMinutes = %d, want 600", day.PlannedMinutes)
	}
}

func TestResolveDay_FullOverrideWinsOverHalves(t *testing.T) {
	state := fixtureState(t)
	vacation := dayType(t, state, schedule.KeyVacation)
	sick := dayType(t, state, schedule.KeySick)
	d := date(2026, 6, 10)
	state.SetOverride(schedule.Override{Date: d, Period: schedule.PeriodFull, DayTypeID: sick.ID, Note: "flu"})
	state.SetOverride(schedule.Override{Date: d, Period: schedule.PeriodAM, DayTypeID: vacation.ID})

	day, err := newResolver().ResolveDay(state, d)
	if err != nil {
		t.Fatalf("ResolveDay() error = %v", err)
	}
	if day.Halves != nil || day.DayType.Key != schedule.KeySick || day.Note != "flu" {
		t.Errorf("ResolveDay() = %s halves=%v note=%q, want whole sick day", day.DayType.Key, day.Halves, day.Note)
	}
}

func TestResolveWeek(t *testing.T) {
	state := fixtureState(t)
	// Overrides never leak into the generic week
	vacation := dayType(t, state, schedule.KeyVacation)
	state.SetOverride(schedule.Override{Date: date(2026, 6, 15), Period: schedule.PeriodFull, DayTypeID: vacation.ID})

	week, err := newResolver().ResolveWeek(state)
	if err != nil {
		t.Fatalf("ResolveWeek() error = %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("ResolveWeek() = %d days, want 7", len(week))
	}

	wantKeys := []string{"work", "work", "work", "work", "work", "off", "off"}
	for i, view := range week {
		if view.Weekday != i {
			t.Errorf("week[%d].Weekday = %d", i, view.Weekday)
		}
		if view.DayType.Key != wantKeys[i] {
			t.Errorf("week[%d] = %s, want %s", i, view.DayType.Key, wantKeys[i])
		}
		if view.IsWeekend != (i >= 5) {
			t.Errorf("week[%d].IsWeekend = %v", i, view.IsWeekend)
		}
	}

	if week[0].PlannedMinutes != 600 || week[6].PlannedMinutes != 150 {
		t.Errorf("planned minutes Mon=%d Sun=%d, want 600/150", week[0].PlannedMinutes, week[6].PlannedMinutes)
	}
	if week[1].CategoryMinutes["cat-music"] != 120 || week[1].CategoryMinutes[UncategorizedKey] != 480 {
		t.Errorf("Tuesday category minutes = %v, want music 120, uncategorized 480", week[1].CategoryMinutes)
	}
}

func TestResolveWeek_MissingOffDay(t *testing.T) {
	state := schedule.NewState("bob")
	state.DayTypes = []schedule.DayType{{ID: "w", Key: schedule.KeyWork, Name: schedule.NameWork, Kind: schedule.WorkLike}}

	if _, err := newResolver().ResolveWeek(state); !schedule.IsConfiguration(err) {
		t.Errorf("ResolveWeek() error = %v, want ConfigurationError", err)
	}
}

func TestWeekStatistics(t *testing.T) {
	state := fixtureState(t)

	stats, err := newResolver().WeekStatistics(state, date(2026, 6, 3))
	if err != nil {
		t.Fatalf("WeekStatistics() error = %v", err)
	}
	if !stats.Start.Equal(date(2026, 6, 1)) || !stats.End.Equal(date(2026, 6, 7)) {
		t.Errorf("week = %s..%s, want 2026-06-01..2026-06-07", stats.Start.Format("2006-01-02"), stats.End.Format("2006-01-02"))
	}
	if stats.WorkDays != 4 || stats.OffDays != 3 {
		t.Errorf("work/off = %v/%v, want 4/3 (Fronleichnam on Thursday)", stats.WorkDays, stats.OffDays)
	}
	if stats.ByDayType[schedule.KeyHoliday] != 1 {
		t.Errorf("holidays = %v, want 1", stats.ByDayType[schedule.KeyHoliday])
	}
	if stats.PlannedMinutes != 600*4+150*3 {
		t.Errorf("PlannedMinutes = %d, want %d", stats.PlannedMinutes, 600*4+150*3)
	}

	state.Settings.WeekStart = 6
	stats, err = newResolver().WeekStatistics(state, date(2026, 6, 3))
	if err != nil {
		t.Fatalf("WeekStatistics() error = %v", err)
	}
	if !stats.Start.Equal(date(2026, 5, 31)) {
		t.Errorf("Sunday-start week begins %s, want 2026-05-31", stats.Start.Format("2006-01-02"))
	}
}

// countingProvider counts lookups against a wrapped provider
type countingProvider struct {
	holidays.Provider
	lookups int
	err     error
}

func (p *countingProvider) Lookup(region string, date time.Time) (*holidays.Holiday, error) {
	p.lookups++
	if p.err != nil {
		return nil, p.err
	}
	return p.Provider.Lookup(region, date)
}

func TestResolve_RegionWithoutHolidayData(t *testing.T) {
	providers := []struct {
		name     string
		provider holidays.Provider
	}{
		{"builtin", holidays.NewBuiltin()},
		{"cached builtin", holidays.NewCached(holidays.NewBuiltin(), time.Hour, zap.NewNop())},
	}

	for _, tt := range providers {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.provider, zap.NewNop())

			state := fixtureState(t)
			state.Settings.Region = "FR"
			noRegion := fixtureState(t)
			noRegion.Settings.Region = ""

			got, err := r.ResolveDayType(state, date(2026, 6, 2))
			if err != nil {
				t.Fatalf("ResolveDayType() error = %v", err)
			}
			if got.Key != schedule.KeyWork {
				t.Errorf("ResolveDayType() = %s, want work", got.Key)
			}

			// Christmas is a weekday in 2026 and no holiday without data
			christmas, err := r.ResolveDay(state, date(2026, 12, 25))
			if err != nil {
				t.Fatalf("ResolveDay() error = %v", err)
			}
			if christmas.Source == SourceHoliday {
				t.Errorf("ResolveDay(2026-12-25) source = holiday, want weekday tier")
			}

			year, err := r.ResolveYearStatistics(state, 2026)
			if err != nil {
				t.Fatalf("ResolveYearStatistics() error = %v", err)
			}
			want, err := r.ResolveYearStatistics(noRegion, 2026)
			if err != nil {
				t.Fatalf("ResolveYearStatistics(no region) error = %v", err)
			}
			if year.WorkDays != want.WorkDays || year.Holidays != 0 {
				t.Errorf("year = %v work / %v holidays, want %v / 0", year.WorkDays, year.Holidays, want.WorkDays)
			}

			if _, err := r.ResolveMonth(state, 2026, time.June); err != nil {
				t.Errorf("ResolveMonth() error = %v", err)
			}
		})
	}
}

func TestResolve_HolidayProviderFailurePropagates(t *testing.T) {
	provider := &countingProvider{Provider: holidays.NewBuiltin(), err: errors.New("calendar service down")}
	r := New(provider, zap.NewNop())

	if _, err := r.ResolveDayType(fixtureState(t), date(2026, 6, 2)); err == nil {
		t.Fatal("ResolveDayType() expected provider error")
	}
}

func TestAggregates_LookUpEachDateOnce(t *testing.T) {
	state := fixtureState(t)

	provider := &countingProvider{Provider: holidays.NewBuiltin()}
	r := New(provider, zap.NewNop())
	if _, err := r.ResolveMonth(state, 2026, time.June); err != nil {
		t.Fatalf("ResolveMonth() error = %v", err)
	}
	if provider.lookups != 30 {
		t.Errorf("ResolveMonth() made %d holiday lookups, want 30", provider.lookups)
	}

	provider.lookups = 0
	if _, err := r.WeekStatistics(state, date(2026, 6, 3)); err != nil {
		t.Fatalf("WeekStatistics() error = %v", err)
	}
	if provider.lookups != 7 {
		t.Errorf("WeekStatistics() made %d holiday lookups, want 7", provider.lookups)
	}
}
