package projections

import (
	"context"
	"errors"
	"time"

	"gymops/internal/adapters/markdown"
	"gymops/internal/domain/schedule"
)

// ErrMissingDay is returned when a day query names neither a weekday nor a date.
var ErrMissingDay = errors.New("either a weekday or a date is required")

// SlotReader is the store view needed by slot projections.
type SlotReader interface {
	All(ctx context.Context) ([]schedule.Slot, error)
}

// SlotsDeps holds dependencies for slot projections.
type SlotsDeps struct {
	Store SlotReader
}

// SlotView is the read model of one slot. Dated slots carry StartDate and
// EndDate; their weekday fields are derived from those dates.
type SlotView struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DescriptionHTML string `json:"description_html,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Type            string `json:"type,omitempty"`
	Color           string `json:"color,omitempty"`
	StartDay        string `json:"start_day"`
	EndDay          string `json:"end_day"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
	AnyTime         bool   `json:"any_time,omitempty"`
}

// Slot modes as exposed to clients.
const (
	ModeWeekday = "weekday"
	ModeDated   = "dated"
)

// NewSlotView builds the read model for s.
func NewSlotView(s schedule.Slot) SlotView {
	v := SlotView{
		ID:              s.ID,
		Mode:            ModeWeekday,
		Title:           s.Title,
		Description:     s.Description,
		DescriptionHTML: markdown.ToHTML(s.Description),
		Notes:           s.Notes,
		Type:            string(s.Type),
		Color:           s.Color,
		AnyTime:         s.IsAnyTime(),
	}
	if w, ok := s.Weekly(); ok {
		v.StartDay, v.EndDay = w.Start.Day.String(), w.End.Day.String()
		v.StartTime, v.EndTime = w.Start.Clock(), w.End.Clock()
	}
	if d, ok := s.Dated(); ok {
		v.Mode = ModeDated
		v.StartDate = d.Start.Format(schedule.DateTimeLayout)
		v.EndDate = d.End.Format(schedule.DateTimeLayout)
	}
	return v
}

func views(slots []schedule.Slot) []SlotView {
	out := make([]SlotView, len(slots))
	for i, s := range slots {
		out[i] = NewSlotView(s)
	}
	return out
}

// QueryAllSlots lists a branch's slots in insertion order.
func QueryAllSlots(ctx context.Context, deps SlotsDeps) ([]SlotView, error) {
	slots, err := deps.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	return views(slots), nil
}

// SlotsForDayQuery selects slots by weekday name or calendar date.
// A non-zero Date wins over Day.
type SlotsForDayQuery struct {
	Day  string
	Date time.Time
}

// QuerySlotsForDay resolves the slots applying to a weekday or a date,
// sorted by start.
// PRE: q names a day or a date
// POST: Returns matching slots, or ErrMissingDay / schedule.ErrInvalidDay
func QuerySlotsForDay(ctx context.Context, q SlotsForDayQuery, deps SlotsDeps) ([]SlotView, error) {
	var resolve func([]schedule.Slot) []schedule.Slot
	switch {
	case !q.Date.IsZero():
		resolve = func(all []schedule.Slot) []schedule.Slot { return schedule.SlotsForDate(all, q.Date) }
	case q.Day != "":
		day, err := schedule.ParseWeekday(q.Day)
		if err != nil {
			return nil, err
		}
		resolve = func(all []schedule.Slot) []schedule.Slot { return schedule.SlotsForWeekday(all, day) }
	default:
		return nil, ErrMissingDay
	}

	all, err := deps.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	return views(resolve(all)), nil
}

// WeekView lists the dated slots starting in one Monday-anchored week.
type WeekView struct {
	WeekStart string     `json:"week_start"`
	WeekEnd   string     `json:"week_end"`
	Slots     []SlotView `json:"slots"`
}

// QuerySlotsForWeek lists the dated slots of the week containing weekStart;
// these are the sources a recurrence projects forward.
func QuerySlotsForWeek(ctx context.Context, weekStart time.Time, deps SlotsDeps) (WeekView, error) {
	all, err := deps.Store.All(ctx)
	if err != nil {
		return WeekView{}, err
	}
	monday := schedule.StartOfWeek(weekStart)
	return WeekView{
		WeekStart: monday.Format(schedule.DateLayout),
		WeekEnd:   monday.AddDate(0, 0, 6).Format(schedule.DateLayout),
		Slots:     views(schedule.SlotsInWeek(all, weekStart)),
	}, nil
}
