package schedule

import (
	"cmp"
	"slices"
	"time"
)

// Layouts used for naive wall-clock values.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Naive re-reads t's wall clock in UTC so that no zone arithmetic applies.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// StartOfDay returns 00:00:00 of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	t = Naive(t)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns Monday 00:00 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	return d.AddDate(0, 0, -WeekdayOf(d).Rank())
}

// EndOfWeek returns the last instant of Sunday of the week containing t.
func EndOfWeek(t time.Time) time.Time {
	return EndOfDay(StartOfWeek(t).AddDate(0, 0, 6))
}

// SlotsForWeekday returns the slots active on day, sorted by start.
// Template slots match when rank(start) <= rank(day) <= rank(end); spans
// never wrap past Sunday. Dated slots match on every weekday their
// interval touches.
// PRE: day is valid
// POST: Returns matches ordered by start, ties in input order
func SlotsForWeekday(slots []Slot, day Weekday) []Slot {
	var out []Slot
	for _, s := range slots {
		switch a := s.Anchor.(type) {
		case WeekdayAnchor:
			if a.Covers(day) {
				out = append(out, s)
			}
		case DateAnchor:
			if a.Touches(day) {
				out = append(out, s)
			}
		}
	}
	slices.SortStableFunc(out, func(x, y Slot) int {
		return cmp.Compare(weekStartKey(x), weekStartKey(y))
	})
	return out
}

// SlotsForDate returns the slots active on the calendar day of date, sorted
// by start. Dated slots match on closed-interval overlap with
// [00:00:00, 23:59:59.999999999]; template slots match when the date's
// weekday is in their span.
// PRE: none
// POST: Returns matches ordered by start, ties in input order
func SlotsForDate(slots []Slot, date time.Time) []Slot {
	dayStart := StartOfDay(date)
	dayEnd := EndOfDay(date)
	day := WeekdayOf(dayStart)

	type match struct {
		slot  Slot
		start time.Time
	}
	var found []match
	for _, s := range slots {
		switch a := s.Anchor.(type) {
		case DateAnchor:
			if a.Overlaps(dayStart, dayEnd) {
				found = append(found, match{slot: s, start: Naive(a.Start)})
			}
		case WeekdayAnchor:
			if a.Covers(day) {
				found = append(found, match{slot: s, start: projectOnto(a.Start, dayStart)})
			}
		}
	}
	slices.SortStableFunc(found, func(x, y match) int {
		return x.start.Compare(y.start)
	})

	var out []Slot
	for _, m := range found {
		out = append(out, m.slot)
	}
	return out
}

// SlotsInWeek returns the dated slots starting within the Monday-anchored
// week containing weekStart, sorted by start.
func SlotsInWeek(slots []Slot, weekStart time.Time) []Slot {
	from := StartOfWeek(weekStart)
	to := EndOfWeek(weekStart)
	var out []Slot
	for _, s := range slots {
		a, ok := s.Dated()
		if !ok {
			continue
		}
		if !a.Start.Before(from) && !a.Start.After(to) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(x, y Slot) int {
		xa, _ := x.Dated()
		ya, _ := y.Dated()
		return xa.Start.Compare(ya.Start)
	})
	return out
}

// weekStartKey orders slots on the template week.
func weekStartKey(s Slot) int {
	switch a := s.Anchor.(type) {
	case WeekdayAnchor:
		return a.Start.MinuteOfWeek()
	case DateAnchor:
		return a.Weekly().Start.MinuteOfWeek()
	}
	return 0
}

// projectOnto places a template start time on the week of dayStart.
func projectOnto(t WeeklyTime, dayStart time.Time) time.Time {
	monday := StartOfWeek(dayStart)
	return monday.Add(time.Duration(t.MinuteOfWeek()) * time.Minute)
}
