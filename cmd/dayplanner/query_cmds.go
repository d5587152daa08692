package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/day-planner/internal/resolver"
	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
	"go.uber.org/zap"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the owner and the baseline day types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.service.Seed(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"owner": a.owner, "day_types_added": added})
			}
			if added == 0 {
				viewPrintf("Owner %s already has every baseline day type\n", a.owner)
				return nil
			}
			viewPrintf("✅ Seeded %s: %d day type(s) added\n", a.owner, added)
			return nil
		},
	}
}

func dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "Show what a date resolves to (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := a.service.Day(cmd.Context(), a.owner, date)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(day)
			}

			state, err := a.service.State(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			printDay(state, day)
			return nil
		},
	}
}

func weekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show the generic Monday..Sunday plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			week, err := a.service.Week(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(week)
			}

			viewPrintf("\n📅 Weekly plan of %s\n", a.owner)
			viewPrintln("═══════════════════════════════════════════════════════")
			for _, wd := range week {
				custom := ""
				if wd.HasCustom {
					custom = " (custom)"
				}
				viewPrintf("  %-9s | %-16s | %5s planned | %d block(s)%s\n",
					wd.Name, wd.DayType.Name, formatMinutes(wd.PlannedMinutes), len(wd.Blocks), custom)
			}
			return nil
		},
	}
}

func monthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [yyyy-mm]",
		Short: "Show a calendar month (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			today := dateutil.Today()
			year, month := today.Year(), today.Month()
			if len(args) == 1 {
				var err error
				year, month, err = dateutil.ParseMonth(args[0])
				if err != nil {
					return err
				}
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.service.Month(cmd.Context(), a.owner, year, month)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(view)
			}

			viewPrintf("\n📅 %s %d\n", view.Month, view.Year)
			viewPrintln("═══════════════════════════════════════════════════════")
			for _, day := range view.Days {
				viewPrintf("  %s %s | %-16s | %s\n",
					day.Date.Format("2006-01-02"), day.WeekdayName[:3], dayLabel(&day), day.Source)
			}
			viewPrintf("\n  Work: %s  Off: %s  Total: %d  Work share: %d%%\n",
				formatUnits(view.WorkCount), formatUnits(view.OffCount), view.TotalDays, view.WorkPercent)
			return nil
		},
	}
}

func yearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "year [yyyy]",
		Short: "Show year statistics (default: current year)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := dateutil.Today().Year()
			if len(args) == 1 {
				var err error
				year, err = strconv.Atoi(args[0])
				if err != nil || year < 1 {
					return fmt.Errorf("invalid year %q", args[0])
				}
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.service.Year(cmd.Context(), a.owner, year)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(stats)
			}

			viewPrintf("\n📊 Year %d (%d days)\n", stats.Year, stats.Total)
			viewPrintln("═══════════════════════════════════════════════════════")
			viewPrintf("  Work days:   %s (%d%%)\n", formatUnits(stats.WorkDays), stats.WorkPercent)
			viewPrintf("  Holidays:    %s\n", formatUnits(stats.Holidays))
			viewPrintf("  Vacation:    %s\n", formatUnits(stats.Vacation))
			viewPrintf("  Sick:        %s\n", formatUnits(stats.Sick))
			viewPrintf("  Off days:    %s\n", formatUnits(stats.OffDays))
			printUnitsByKey(stats.ByDayType)
			return nil
		},
	}
}

func weekStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekstats [date]",
		Short: "Summarize the actual week containing a date (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.service.WeekStats(cmd.Context(), a.owner, date)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(stats)
			}

			state, err := a.service.State(cmd.Context(), a.owner)
			if err != nil {
				return err
			}

			viewPrintf("\n📊 Week %s .. %s\n", stats.Start.Format("2006-01-02"), stats.End.Format("2006-01-02"))
			viewPrintln("═══════════════════════════════════════════════════════")
			for _, day := range stats.Days {
				viewPrintf("  %s %s | %-16s | %5s planned\n",
					day.Date.Format("2006-01-02"), day.WeekdayName[:3], dayLabel(&day), formatMinutes(day.PlannedMinutes))
			}
			viewPrintf("\n  Work: %s  Off: %s  Planned: %s\n",
				formatUnits(stats.WorkDays), formatUnits(stats.OffDays), formatMinutes(stats.PlannedMinutes))

			if len(stats.CategoryMinutes) > 0 {
				viewPrintln("\n  By category:")
				keys := make([]string, 0, len(stats.CategoryMinutes))
				for k := range stats.CategoryMinutes {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					viewPrintf("    %-20s %s\n", categoryName(state, k), formatMinutes(stats.CategoryMinutes[k]))
				}
			}
			return nil
		},
	}
}

func overlapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overlaps [date]",
		Short: "List blocks of a date that share time (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			overlaps, err := a.service.Overlaps(cmd.Context(), a.owner, date)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(overlaps)
			}

			if len(overlaps) == 0 {
				viewPrintf("No overlapping blocks on %s\n", dateutil.Key(date))
				return nil
			}
			for _, o := range overlaps {
				viewPrintf("  ⚠️  %s (%s-%s) and %s (%s-%s): %d min\n",
					o.First.Name, o.First.Start, o.First.End,
					o.Second.Name, o.Second.Start, o.Second.End,
					o.Minutes)
			}
			return nil
		},
	}
}

func printDay(state *schedule.State, day *resolver.DayView) {
	viewPrintf("\n📅 %s (%s)\n", day.Date.Format("2006-01-02"), day.WeekdayName)
	viewPrintln("═══════════════════════════════════════════════════════")
	viewPrintf("  Day type:  %s [%s] via %s\n", day.DayType.Name, day.DayType.Kind, day.Source)
	if day.Holiday != nil {
		viewPrintf("  Holiday:   %s\n", day.Holiday.Name)
	}
	if day.Halves != nil {
		viewPrintf("  Morning:   %s\n", day.Halves.AM.Name)
		viewPrintf("  Afternoon: %s\n", day.Halves.PM.Name)
	}
	if day.Note != "" {
		viewPrintf("  Note:      %s\n", day.Note)
	}

	if len(day.Blocks) == 0 {
		viewPrintln("\n  No activities planned")
		return
	}
	viewPrintln("\n  Start | End   | Activity")
	viewPrintln("  ------+-------+------------------------------")
	for _, b := range day.Blocks {
		category := ""
		if b.CategoryID != nil {
			category = " [" + categoryName(state, *b.CategoryID) + "]"
		}
		viewPrintf("  %s | %s | %s%s\n", b.Start, b.End, b.Name, category)
	}
	viewPrintf("\n  Planned: %s\n", formatMinutes(day.PlannedMinutes))
}

func printUnitsByKey(units map[string]float64) {
	if len(units) == 0 {
		return
	}
	keys := make([]string, 0, len(units))
	for k := range units {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	viewPrintln("\n  By day type:")
	for _, k := range keys {
		viewPrintf("    %-12s %s\n", k, formatUnits(units[k]))
	}
}

func dayLabel(day *resolver.DayView) string {
	if day.Halves != nil {
		return day.Halves.AM.Name + " / " + day.Halves.PM.Name
	}
	if day.Holiday != nil {
		return day.Holiday.Name
	}
	return day.DayType.Name
}

func categoryName(state *schedule.State, id string) string {
	if id == resolver.UncategorizedKey {
		return "(none)"
	}
	if c, ok := state.Category(id); ok {
		return c.Name
	}
	return id
}

// dateArg parses an optional date argument, defaulting to today
func dateArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return dateutil.Today(), nil
	}
	date, err := dateutil.ParseDate(args[0])
	if err != nil {
		return time.Time{}, err
	}
	logger.Debug("Resolved date argument", zap.String("date", dateutil.Key(date)))
	return date, nil
}

// parseWeekday accepts a Monday-based index (0..6) or an English day name
func parseWeekday(value string) (int, error) {
	if i, err := strconv.Atoi(value); err == nil {
		if err := schedule.ValidateWeekday(i); err != nil {
			return 0, err
		}
		return i, nil
	}
	value = strings.ToLower(strings.TrimSpace(value))
	for i := 0; i < 7; i++ {
		name := strings.ToLower(dateutil.WeekdayName(i))
		if value == name || (len(value) >= 3 && strings.HasPrefix(name, value)) {
			return i, nil
		}
	}
	return 0, &schedule.ValidationError{Field: "weekday", Reason: fmt.Sprintf("unknown weekday %q", value)}
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

func formatUnits(units float64) string {
	return strconv.FormatFloat(units, 'f', -1, 64)
}
