package projections

import (
	"context"
	"fmt"
	"time"

	"gymops/internal/adapters/markdown"
	"gymops/internal/domain/recurrence"
	"gymops/internal/domain/schedule"
)

// PreviewRecurrenceQuery carries the projection the operator is reviewing.
type PreviewRecurrenceQuery struct {
	WeekStart             time.Time
	Horizon               time.Time
	ExcludedSourceIDs     []string
	ExcludedOccurrenceIDs []string
}

// PreviewRecurrenceDeps holds dependencies for the preview projection.
type PreviewRecurrenceDeps struct {
	Store    SlotReader
	MaxWeeks int
}

// PreviewOccurrence is one proposed slot. ID is the key used to exclude it.
type PreviewOccurrence struct {
	ID              string `json:"id"`
	SourceID        string `json:"source_id"`
	Title           string `json:"title"`
	Day             string `json:"day"`
	Time            string `json:"time"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DescriptionHTML string `json:"description_html,omitempty"`
}

// PreviewWeek groups the occurrences of one projected week.
type PreviewWeek struct {
	WeekNumber  int                 `json:"week_number"`
	WeekLabel   string              `json:"week_label"`
	Occurrences []PreviewOccurrence `json:"occurrences"`
}

// PreviewRecurrenceResult is the week-by-week breakdown shown before commit.
type PreviewRecurrenceResult struct {
	SourceWeek string        `json:"source_week"`
	Horizon    string        `json:"horizon"`
	Total      int           `json:"total"`
	Weeks      []PreviewWeek `json:"weeks"`
}

// QueryPreviewRecurrence projects the source week without writing anything.
// Every week up to the horizon is listed, including weeks left empty by
// exclusions.
// PRE: q.Horizon is after the source week
// POST: Returns the breakdown, or ErrHorizonTooFar / ErrNoOccurrences / ErrEmptySelection
func QueryPreviewRecurrence(ctx context.Context, q PreviewRecurrenceQuery, deps PreviewRecurrenceDeps) (PreviewRecurrenceResult, error) {
	if err := recurrence.CheckHorizon(q.WeekStart, q.Horizon, deps.MaxWeeks); err != nil {
		return PreviewRecurrenceResult{}, err
	}
	all, err := deps.Store.All(ctx)
	if err != nil {
		return PreviewRecurrenceResult{}, err
	}
	occs, err := recurrence.Generate(recurrence.Request{
		WeekStart:             q.WeekStart,
		Horizon:               q.Horizon,
		Slots:                 all,
		ExcludedSourceIDs:     q.ExcludedSourceIDs,
		ExcludedOccurrenceIDs: q.ExcludedOccurrenceIDs,
		IDs:                   recurrence.PreviewIDs{},
	})
	if err != nil {
		return PreviewRecurrenceResult{}, err
	}

	monday := schedule.StartOfWeek(q.WeekStart)
	totalWeeks := recurrence.CalendarWeeksBetween(monday, q.Horizon)
	result := PreviewRecurrenceResult{
		SourceWeek: monday.Format(schedule.DateLayout),
		Horizon:    schedule.Naive(q.Horizon).Format(schedule.DateLayout),
		Total:      len(occs),
		Weeks:      make([]PreviewWeek, totalWeeks),
	}
	for i := range result.Weeks {
		result.Weeks[i] = PreviewWeek{
			WeekNumber:  i + 1,
			WeekLabel:   WeekLabel(i+1, monday.AddDate(0, 0, 7*(i+1))),
			Occurrences: []PreviewOccurrence{},
		}
	}
	for _, o := range occs {
		a, _ := o.Slot.Dated()
		wk := &result.Weeks[o.Week-1]
		wk.Occurrences = append(wk.Occurrences, PreviewOccurrence{
			ID:              o.Key,
			SourceID:        o.SourceID,
			Title:           o.Slot.Title,
			Day:             schedule.WeekdayOf(a.Start).Title(),
			Time:            a.Start.Format("15:04") + " - " + a.End.Format("15:04"),
			Start:           a.Start.Format(schedule.DateTimeLayout),
			End:             a.End.Format(schedule.DateTimeLayout),
			DescriptionHTML: markdown.ToHTML(o.Slot.Description),
		})
	}
	return result, nil
}

// WeekLabel names projected week n starting on monday, e.g.
// "Week 2 (15 Jan - 21 Jan 2024)".
func WeekLabel(n int, monday time.Time) string {
	sunday := monday.AddDate(0, 0, 6)
	return fmt.Sprintf("Week %d (%s - %s)", n, monday.Format("2 Jan"), sunday.Format("2 Jan 2006"))
}
