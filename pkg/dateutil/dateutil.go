package dateutil

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar date format used in keys and payloads
const DateLayout = "2006-01-02"

// MonthLayout is the canonical year-month format
const MonthLayout = "2006-01"

// Date returns midnight UTC for the given calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the start of the day (00:00:00) for the given date, in UTC.
// The wall-clock date is kept, the zone is dropped.
func StartOfDay(date time.Time) time.Time {
	return Date(date.Year(), date.Month(), date.Day())
}

// WeekdayIndex returns the weekday of date with Monday = 0 ... Sunday = 6
func WeekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// WeekdayName returns the English name of a Monday-based weekday index
func WeekdayName(index int) string {
	if index < 0 || index > 6 {
		return fmt.Sprintf("Weekday(%d)", index)
	}
	return time.Weekday((index + 1) % 7).String()
}

// StartOfWeek returns the Monday of the week for the given date
func StartOfWeek(date time.Time) time.Time {
	return StartOfWeekOn(date, 0)
}

// StartOfWeekOn returns the first day of the week containing date, where
// weekStart is a Monday-based weekday index (0 = Monday, 6 = Sunday)
func StartOfWeekOn(date time.Time, weekStart int) time.Time {
	day := StartOfDay(date)
	offset := (WeekdayIndex(day) - weekStart + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsSameDay returns true if two dates are on the same day
func IsSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInYear returns 366 for leap years and 365 otherwise
func DaysInYear(year int) int {
	return Date(year, time.December, 31).YearDay()
}

// Key formats the date as YYYY-MM-DD
func Key(date time.Time) string {
	return date.Format(DateLayout)
}

// ParseDate parses date string in various formats and returns midnight UTC
func ParseDate(dateStr string) (time.Time, error) {
	formats := []string{
		DateLayout,
		"02.01.2006",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return StartOfDay(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", dateStr)
}

// ParseMonth parses YYYY-MM
func ParseMonth(monthStr string) (int, time.Month, error) {
	t, err := time.Parse(MonthLayout, monthStr)
	if err != nil {
		return 0, 0, fmt.Errorf("unrecognized month %q, expected YYYY-MM", monthStr)
	}
	return t.Year(), t.Month(), nil
}

// Today returns today's date (start of day)
func Today() time.Time {
	return StartOfDay(time.Now())
}
