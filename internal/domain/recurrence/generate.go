package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"gymops/internal/domain/schedule"
)

// DefaultMaxWeeks caps how far ahead callers may project a week.
const DefaultMaxWeeks = 104

// Domain errors
var (
	ErrNoOccurrences  = errors.New("horizon must fall beyond the source week")
	ErrEmptySelection = errors.New("no source slots left to repeat")
	ErrHorizonTooFar  = errors.New("horizon exceeds the maximum number of weeks")
)

// Request describes one weekly projection.
type Request struct {
	// WeekStart is any date of the source week; it is normalized to Monday.
	WeekStart time.Time
	// Horizon is the inclusive last day an occurrence may start on.
	Horizon time.Time
	// Slots may hold the whole schedule; only dated slots starting in the
	// source week are repeated.
	Slots []schedule.Slot
	// ExcludedSourceIDs drops a source slot from every week.
	ExcludedSourceIDs []string
	// ExcludedOccurrenceIDs drops single occurrences by PreviewID key.
	ExcludedOccurrenceIDs []string
	// IDs names the emitted slots. Nil means PreviewIDs.
	IDs IDScheme
}

// Occurrence is one projected slot and where it came from.
type Occurrence struct {
	Week     int    // 1-based week offset from the source week
	SourceID string // id of the repeated source slot
	Key      string // PreviewID(Week, SourceID), the exclusion key
	Slot     schedule.Slot
}

// Slots returns the materialized slots of occs in order.
func Slots(occs []Occurrence) []schedule.Slot {
	out := make([]schedule.Slot, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Slot)
	}
	return out
}

// CalendarWeeksBetween counts Monday-anchored week boundaries crossed
// between from and to. Days inside the same week count as zero.
func CalendarWeeksBetween(from, to time.Time) int {
	days := int(schedule.StartOfWeek(to).Sub(schedule.StartOfWeek(from)) / (24 * time.Hour))
	return days / 7
}

// CheckHorizon rejects projections longer than maxWeeks weeks.
// A maxWeeks of zero or less applies DefaultMaxWeeks.
// PRE: none
// POST: Returns ErrHorizonTooFar when the request is unbounded for the caller
func CheckHorizon(weekStart, horizon time.Time, maxWeeks int) error {
	if maxWeeks <= 0 {
		maxWeeks = DefaultMaxWeeks
	}
	if n := CalendarWeeksBetween(weekStart, horizon); n > maxWeeks {
		return fmt.Errorf("%w: %d weeks requested, at most %d allowed", ErrHorizonTooFar, n, maxWeeks)
	}
	return nil
}

// Generate projects the source week's dated slots forward one week at a
// time up to the horizon. Output is ordered by week, then by source start.
// PRE: req.Slots are valid
// POST: Returns the occurrences to commit, ErrNoOccurrences when the horizon
// does not pass the source week, or ErrEmptySelection when every source
// slot is excluded
func Generate(req Request) ([]Occurrence, error) {
	weekStart := schedule.StartOfWeek(req.WeekStart)
	totalWeeks := CalendarWeeksBetween(weekStart, req.Horizon)
	if totalWeeks <= 0 {
		return nil, fmt.Errorf("%w: horizon %s, source week %s",
			ErrNoOccurrences, schedule.Naive(req.Horizon).Format(schedule.DateLayout), weekStart.Format(schedule.DateLayout))
	}

	sources := selectSources(req.Slots, weekStart, req.ExcludedSourceIDs)
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: week of %s", ErrEmptySelection, weekStart.Format(schedule.DateLayout))
	}

	ids := req.IDs
	if ids == nil {
		ids = PreviewIDs{}
	}
	excluded := toSet(req.ExcludedOccurrenceIDs)
	horizon := schedule.EndOfDay(req.Horizon)

	starts := make([][]time.Time, len(sources))
	for i, s := range sources {
		a, _ := s.Dated()
		projected, err := weeklyStarts(a.Start, totalWeeks)
		if err != nil {
			return nil, fmt.Errorf("project slot %s: %w", s.ID, err)
		}
		starts[i] = projected
	}

	var out []Occurrence
	for w := 1; w <= totalWeeks; w++ {
		for i, s := range sources {
			newStart := starts[i][w]
			if newStart.After(horizon) {
				continue
			}
			key := PreviewID(w, s.ID)
			if _, skip := excluded[key]; skip {
				continue
			}
			a, _ := s.Dated()
			out = append(out, Occurrence{
				Week:     w,
				SourceID: s.ID,
				Key:      key,
				Slot: schedule.Slot{
					ID:      ids.OccurrenceID(w, s.ID),
					Details: s.Details,
					Anchor:  schedule.DateAnchor{Start: newStart, End: newStart.Add(a.End.Sub(a.Start))},
				},
			})
		}
	}
	return out, nil
}

// selectSources returns the week's dated slots minus excluded ids.
func selectSources(slots []schedule.Slot, weekStart time.Time, excludedIDs []string) []schedule.Slot {
	excluded := toSet(excludedIDs)
	var out []schedule.Slot
	for _, s := range schedule.SlotsInWeek(slots, weekStart) {
		if _, skip := excluded[s.ID]; skip {
			continue
		}
		out = append(out, s)
	}
	return out
}

// weeklyStarts returns start followed by its next weeks weekly repeats.
// Index w holds the start w weeks ahead.
func weeklyStarts(start time.Time, weeks int) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: start,
		Count:   weeks + 1,
	})
	if err != nil {
		return nil, err
	}
	times := r.All()
	if len(times) != weeks+1 {
		return nil, fmt.Errorf("weekly rule produced %d starts, want %d", len(times), weeks+1)
	}
	// The rule works at second precision; carry the exact source start.
	out := make([]time.Time, len(times))
	for i, t := range times {
		out[i] = start.Add(t.Sub(times[0]))
	}
	return out, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
