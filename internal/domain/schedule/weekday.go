package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the week ranked Monday=0 ... Sunday=6.
// Day comparisons always use this rank, never the name.
type Weekday int

// Day of week constants
const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// ValidDays contains all valid day values in rank order.
var ValidDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Rank returns the position of the day in the Monday-first week.
func (d Weekday) Rank() int { return int(d) }

// Valid reports whether d is one of the seven days.
func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// String returns the lowercase day name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return dayNames[d]
}

// Title returns the capitalized day name for display.
func (d Weekday) Title() string {
	s := d.String()
	if !d.Valid() {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseWeekday accepts a full day name or its three-letter abbreviation,
// case-insensitively.
// PRE: none
// POST: Returns the day or ErrInvalidDay
func ParseWeekday(s string) (Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range dayNames {
		if v == name || (len(v) == 3 && strings.HasPrefix(name, v)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// WeekdayOf returns the Monday-first weekday of t.
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday is Sunday=0.
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// MarshalText encodes the day as its lowercase name.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a day name.
func (d *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
