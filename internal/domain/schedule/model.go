package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the slot type shown on the calendar.
type Kind string

// Slot type constants
const (
	KindClass Kind = "class"
	KindPT    Kind = "pt"
)

// AnyTimeTitle labels the full-week membership sentinel slot.
const AnyTimeTitle = "Any Time"

// Any Time spans Monday 05:00 to Sunday 23:00.
var (
	anyTimeStart = WeeklyTime{Day: Monday, Hour: 5}
	anyTimeEnd   = WeeklyTime{Day: Sunday, Hour: 23}
)

// Domain errors
var (
	ErrInvalidRange  = errors.New("slot start must not be after its end")
	ErrInvalidDay    = errors.New("day must be a valid day of the week")
	ErrInvalidTime   = errors.New("time must be a valid HH:MM wall-clock time")
	ErrInvalidType   = errors.New("slot type must be 'class' or 'pt'")
	ErrMissingAnchor = errors.New("slot must be anchored to weekdays or to dates")
	ErrEmptyDate     = errors.New("slot dates cannot be zero")
	ErrNotFound      = errors.New("slot not found")
	ErrDuplicateID   = errors.New("slot id already exists")
)

// WeeklyTime is a wall-clock time on a day of a template week.
type WeeklyTime struct {
	Day    Weekday
	Hour   int // 0-23
	Minute int // 0-59
}

// MinuteOfWeek returns minutes elapsed since Monday 00:00.
func (t WeeklyTime) MinuteOfWeek() int {
	return t.Day.Rank()*24*60 + t.Hour*60 + t.Minute
}

// Clock returns the time of day in HH:MM form.
func (t WeeklyTime) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t WeeklyTime) validate() error {
	if !t.Day.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDay, int(t.Day))
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, t.Hour, t.Minute)
	}
	return nil
}

// ParseClock parses an HH:MM time of day.
// PRE: none
// POST: Returns hour and minute, or ErrInvalidTime
func ParseClock(s string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

// Anchor places a slot in time. It is either a WeekdayAnchor or a
// DateAnchor; no other implementations exist.
type Anchor interface {
	anchor()
}

// WeekdayAnchor places a slot on a repeating template week.
type WeekdayAnchor struct {
	Start WeeklyTime
	End   WeeklyTime
}

// DateAnchor places a slot on absolute calendar dates (naive wall clock).
type DateAnchor struct {
	Start time.Time
	End   time.Time
}

func (WeekdayAnchor) anchor() {}
func (DateAnchor) anchor()    {}

// Covers reports whether day lies in the anchor's rank span.
// Spans never wrap past Sunday.
func (a WeekdayAnchor) Covers(day Weekday) bool {
	return a.Start.Day.Rank() <= day.Rank() && day.Rank() <= a.End.Day.Rank()
}

// Weekly returns the weekday view of a dated anchor, recomputed from its dates.
func (a DateAnchor) Weekly() WeekdayAnchor {
	return WeekdayAnchor{
		Start: WeeklyTime{Day: WeekdayOf(a.Start), Hour: a.Start.Hour(), Minute: a.Start.Minute()},
		End:   WeeklyTime{Day: WeekdayOf(a.End), Hour: a.End.Hour(), Minute: a.End.Minute()},
	}
}

// Wall returns a with both ends re-read as naive wall-clock times, so an
// anchor built with a zone compares like one built by NewDatedSlot.
func (a DateAnchor) Wall() DateAnchor {
	return DateAnchor{Start: Naive(a.Start), End: Naive(a.End)}
}

// Touches reports whether any calendar day of the interval falls on day.
func (a DateAnchor) Touches(day Weekday) bool {
	first := StartOfDay(a.Start)
	last := StartOfDay(a.End)
	for d, n := first, 0; !d.After(last) && n < 7; d, n = d.AddDate(0, 0, 1), n+1 {
		if WeekdayOf(d) == day {
			return true
		}
	}
	return false
}

// Overlaps reports whether the closed interval [Start, End] overlaps the
// closed interval [from, to].
func (a DateAnchor) Overlaps(from, to time.Time) bool {
	a, from, to = a.Wall(), Naive(from), Naive(to)
	return !(from.After(a.End) || a.Start.After(to))
}

// Details holds the descriptive fields shared by both addressing modes.
type Details struct {
	Title       string
	Description string // markdown
	Notes       string
	Type        Kind
	Color       string
}

// Slot is a scheduled interval owned by a schedule store.
type Slot struct {
	ID string
	Details
	Anchor Anchor
}

// NewWeekdaySlot builds a template slot repeating every week.
// PRE: days are valid; times are wall-clock HH:MM values
// POST: Returns a validated slot without an ID, or ErrInvalidRange when
// start falls after end on the Monday-first week
func NewWeekdaySlot(start, end WeeklyTime, details Details) (Slot, error) {
	s := Slot{Details: details, Anchor: WeekdayAnchor{Start: start, End: end}}
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	return s, nil
}

// NewDatedSlot builds a slot for a concrete calendar occurrence.
// Times are read as naive wall-clock values.
// PRE: start and end are non-zero
// POST: Returns a validated slot without an ID, or ErrInvalidRange when start is after end
func NewDatedSlot(start, end time.Time, details Details) (Slot, error) {
	s := Slot{Details: details, Anchor: DateAnchor{Start: Naive(start), End: Naive(end)}}
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	return s, nil
}

// NewAnyTimeSlot builds the full-week membership sentinel.
func NewAnyTimeSlot(details Details) Slot {
	details.Title = AnyTimeTitle
	return Slot{Details: details, Anchor: WeekdayAnchor{Start: anyTimeStart, End: anyTimeEnd}}
}

// Validate checks if the Slot has valid data.
// PRE: Slot struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Slot) Validate() error {
	switch s.Type {
	case "", KindClass, KindPT:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, s.Type)
	}

	switch a := s.Anchor.(type) {
	case WeekdayAnchor:
		if err := a.Start.validate(); err != nil {
			return err
		}
		if err := a.End.validate(); err != nil {
			return err
		}
		if s.IsAnyTime() {
			return nil
		}
		if a.Start.MinuteOfWeek() > a.End.MinuteOfWeek() {
			return fmt.Errorf("%w: %s %s is after %s %s",
				ErrInvalidRange, a.Start.Day, a.Start.Clock(), a.End.Day, a.End.Clock())
		}
		return nil
	case DateAnchor:
		a = a.Wall()
		if a.Start.IsZero() || a.End.IsZero() {
			return ErrEmptyDate
		}
		if a.Start.After(a.End) {
			return fmt.Errorf("%w: %s is after %s",
				ErrInvalidRange, a.Start.Format(DateTimeLayout), a.End.Format(DateTimeLayout))
		}
		return nil
	default:
		return ErrMissingAnchor
	}
}

// IsAnyTime reports whether s is the full-week membership sentinel.
func (s *Slot) IsAnyTime() bool {
	a, ok := s.Anchor.(WeekdayAnchor)
	return ok && s.Title == AnyTimeTitle && a.Start == anyTimeStart && a.End == anyTimeEnd
}

// Dated returns the date anchor, in naive wall-clock form, when s is a
// calendar occurrence.
func (s *Slot) Dated() (DateAnchor, bool) {
	a, ok := s.Anchor.(DateAnchor)
	return a.Wall(), ok
}

// Weekly returns the weekday view of s. For dated slots the view is
// derived from the dates.
func (s *Slot) Weekly() (WeekdayAnchor, bool) {
	switch a := s.Anchor.(type) {
	case WeekdayAnchor:
		return a, true
	case DateAnchor:
		return a.Weekly(), true
	}
	return WeekdayAnchor{}, false
}

// Duration returns the length of a dated slot, or of a template slot
// measured on the template week.
func (s *Slot) Duration() time.Duration {
	switch a := s.Anchor.(type) {
	case WeekdayAnchor:
		return time.Duration(a.End.MinuteOfWeek()-a.Start.MinuteOfWeek()) * time.Minute
	case DateAnchor:
		a = a.Wall()
		return a.End.Sub(a.Start)
	}
	return 0
}
