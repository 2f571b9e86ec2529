package schedule_test

import (
	"testing"
	"time"

	"gymops/internal/domain/schedule"
)

func ids(slots []schedule.Slot) []string {
	var out []string
	for _, s := range slots {
		out = append(out, s.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestSlotsForWeekday_MondayToWednesday verifies rank-span matching.
func TestSlotsForWeekday_MondayToWednesday(t *testing.T) {
	s := schedule.Slot{ID: "mw", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Monday, 6, 0), End: at(schedule.Wednesday, 20, 0)}}
	for _, d := range schedule.ValidDays {
		got := schedule.SlotsForWeekday([]schedule.Slot{s}, d)
		want := d.Rank() <= schedule.Wednesday.Rank()
		if (len(got) == 1) != want {
			t.Errorf("%s: matched=%v, want %v", d, len(got) == 1, want)
		}
	}
}

// TestSlotsForWeekday_DatedSlots verifies dated slots match the weekdays they touch.
func TestSlotsForWeekday_DatedSlots(t *testing.T) {
	// Friday 22:00 to Saturday 01:00.
	s := schedule.Slot{ID: "late", Anchor: schedule.DateAnchor{Start: date(2024, 1, 5, 22, 0), End: date(2024, 1, 6, 1, 0)}}
	if got := schedule.SlotsForWeekday([]schedule.Slot{s}, schedule.Friday); len(got) != 1 {
		t.Errorf("Friday: got %d, want 1", len(got))
	}
	if got := schedule.SlotsForWeekday([]schedule.Slot{s}, schedule.Saturday); len(got) != 1 {
		t.Errorf("Saturday: got %d, want 1", len(got))
	}
	if got := schedule.SlotsForWeekday([]schedule.Slot{s}, schedule.Sunday); len(got) != 0 {
		t.Errorf("Sunday: got %d, want 0", len(got))
	}
}

// TestSlotsForWeekday_StableOrder verifies start ordering with insertion-order ties.
func TestSlotsForWeekday_StableOrder(t *testing.T) {
	slots := []schedule.Slot{
		{ID: "evening", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Tuesday, 18, 0), End: at(schedule.Tuesday, 19, 0)}},
		{ID: "morning-a", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Tuesday, 6, 0), End: at(schedule.Tuesday, 7, 0)}},
		{ID: "morning-b", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Tuesday, 6, 0), End: at(schedule.Tuesday, 8, 0)}},
		{ID: "monday-span", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Monday, 20, 0), End: at(schedule.Tuesday, 9, 0)}},
	}
	got := ids(schedule.SlotsForWeekday(slots, schedule.Tuesday))
	want := []string{"monday-span", "morning-a", "morning-b", "evening"}
	if !equalIDs(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestSlotsForDate tests closed-interval overlap with the day window.
func TestSlotsForDate(t *testing.T) {
	evening := schedule.Slot{ID: "evening", Anchor: schedule.DateAnchor{Start: date(2024, 3, 1, 18, 0), End: date(2024, 3, 1, 20, 0)}}
	overnight := schedule.Slot{ID: "overnight", Anchor: schedule.DateAnchor{Start: date(2024, 3, 1, 22, 0), End: date(2024, 3, 2, 1, 0)}}
	midnight := schedule.Slot{ID: "midnight", Anchor: schedule.DateAnchor{Start: date(2024, 3, 3, 0, 0), End: date(2024, 3, 3, 0, 0)}}
	slots := []schedule.Slot{overnight, evening, midnight}

	tests := []struct {
		name string
		day  time.Time
		want []string
	}{
		{name: "mar 1", day: date(2024, 3, 1, 0, 0), want: []string{"evening", "overnight"}},
		{name: "mar 1 mid-afternoon query", day: date(2024, 3, 1, 15, 30), want: []string{"evening", "overnight"}},
		{name: "mar 2", day: date(2024, 3, 2, 0, 0), want: []string{"overnight"}},
		{name: "mar 3 boundary inclusive", day: date(2024, 3, 3, 0, 0), want: []string{"midnight"}},
		{name: "mar 4", day: date(2024, 3, 4, 0, 0), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(schedule.SlotsForDate(slots, tt.day))
			if !equalIDs(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSlotsForDate_TemplatesProjectOntoDate verifies template slots apply to any week.
func TestSlotsForDate_TemplatesProjectOntoDate(t *testing.T) {
	tmpl := schedule.Slot{ID: "tmpl", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Friday, 7, 0), End: at(schedule.Friday, 8, 0)}}
	dated := schedule.Slot{ID: "dated", Anchor: schedule.DateAnchor{Start: date(2024, 3, 1, 6, 0), End: date(2024, 3, 1, 6, 45)}}
	// 2024-03-01 is a Friday.
	got := ids(schedule.SlotsForDate([]schedule.Slot{tmpl, dated}, date(2024, 3, 1, 0, 0)))
	if !equalIDs(got, []string{"dated", "tmpl"}) {
		t.Errorf("got %v", got)
	}
	if got := schedule.SlotsForDate([]schedule.Slot{tmpl}, date(2024, 3, 2, 0, 0)); len(got) != 0 {
		t.Errorf("Saturday: got %d, want 0", len(got))
	}
}

// TestSlotsInWeek verifies the Monday-anchored source week window.
func TestSlotsInWeek(t *testing.T) {
	slots := []schedule.Slot{
		{ID: "sun-before", Anchor: schedule.DateAnchor{Start: date(2023, 12, 31, 23, 0), End: date(2024, 1, 1, 0, 30)}},
		{ID: "fri", Anchor: schedule.DateAnchor{Start: date(2024, 1, 5, 18, 0), End: date(2024, 1, 5, 19, 0)}},
		{ID: "mon", Anchor: schedule.DateAnchor{Start: date(2024, 1, 1, 6, 0), End: date(2024, 1, 1, 8, 0)}},
		{ID: "sun-late", Anchor: schedule.DateAnchor{Start: date(2024, 1, 7, 23, 59), End: date(2024, 1, 8, 0, 30)}},
		{ID: "next-mon", Anchor: schedule.DateAnchor{Start: date(2024, 1, 8, 0, 0), End: date(2024, 1, 8, 1, 0)}},
		{ID: "tmpl", Anchor: schedule.WeekdayAnchor{Start: at(schedule.Monday, 6, 0), End: at(schedule.Monday, 7, 0)}},
	}
	// Any day of the week selects the same window.
	got := ids(schedule.SlotsInWeek(slots, date(2024, 1, 3, 12, 0)))
	want := []string{"mon", "fri", "sun-late"}
	if !equalIDs(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestStartOfWeek verifies Monday anchoring including Sunday input.
func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{in: date(2024, 1, 1, 9, 0), want: date(2024, 1, 1, 0, 0)},
		{in: date(2024, 1, 7, 23, 0), want: date(2024, 1, 1, 0, 0)},
		{in: date(2024, 1, 8, 0, 0), want: date(2024, 1, 8, 0, 0)},
		{in: date(2024, 3, 1, 12, 0), want: date(2024, 2, 26, 0, 0)},
	}
	for _, tt := range tests {
		if got := schedule.StartOfWeek(tt.in); !got.Equal(tt.want) {
			t.Errorf("StartOfWeek(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestSlotsForDate_ZonedAnchorUsesWallClock verifies an anchor carrying a
// non-UTC zone resolves on its own wall-clock day in every view.
func TestSlotsForDate_ZonedAnchorUsesWallClock(t *testing.T) {
	plus10 := time.FixedZone("+10", 10*60*60)
	s := schedule.Slot{
		ID:      "zoned",
		Details: schedule.Details{Title: "Dawn patrol"},
		Anchor: schedule.DateAnchor{
			Start: time.Date(2024, 1, 1, 6, 0, 0, 0, plus10),
			End:   time.Date(2024, 1, 1, 8, 0, 0, 0, plus10),
		},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	slots := []schedule.Slot{s}

	if w, _ := s.Weekly(); w.Start.Day != schedule.Monday || w.Start.Hour != 6 {
		t.Errorf("weekly view = %+v, want Monday 06:00", w.Start)
	}
	if got := ids(schedule.SlotsForDate(slots, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))); !equalIDs(got, []string{"zoned"}) {
		t.Errorf("SlotsForDate(Jan 1) = %v, want [zoned]", got)
	}
	if got := ids(schedule.SlotsForDate(slots, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))); len(got) != 0 {
		t.Errorf("SlotsForDate(Dec 31) = %v, want none", got)
	}
	if got := ids(schedule.SlotsInWeek(slots, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))); !equalIDs(got, []string{"zoned"}) {
		t.Errorf("SlotsInWeek = %v, want [zoned]", got)
	}
	a, _ := s.Dated()
	if a.Start.Location() != time.UTC || a.Start.Hour() != 6 {
		t.Errorf("Dated start = %v, want 06:00 naive", a.Start)
	}
	if d := s.Duration(); d != 2*time.Hour {
		t.Errorf("Duration = %v, want 2h", d)
	}
}
