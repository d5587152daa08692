package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is the length of a day on the minute-of-day line
	MinutesPerDay = 1440

	// Noon splits a day into its am and pm halves
	Noon Minute = 720
)

// Minute is a minute-of-day in the range 0..1439
type Minute int

// ParseMinute parses an HH:MM clock value
func ParseMinute(value string) (Minute, error) {
	value = strings.TrimSpace(value)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok {
		return 0, &ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", value)}
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, &ValidationError{Field: "time", Reason: fmt.Sprintf("invalid hour in %q", value)}
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, &ValidationError{Field: "time", Reason: fmt.Sprintf("invalid minute in %q", value)}
	}

	return Minute(h*60 + m), nil
}

// Valid reports whether m is representable as a minute-of-day
func (m Minute) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

// String formats the minute as HH:MM
func (m Minute) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Minute(%d)", int(m))
	}
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// MarshalText encodes the minute as HH:MM
func (m Minute) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, &ValidationError{Field: "time", Reason: fmt.Sprintf("minute %d out of range", int(m))}
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes an HH:MM value
func (m *Minute) UnmarshalText(text []byte) error {
	parsed, err := ParseMinute(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
