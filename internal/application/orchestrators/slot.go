package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gymops/internal/domain/schedule"
)

// ErrSlotIDRequired is returned when an update or delete names no slot.
var ErrSlotIDRequired = errors.New("slot ID is required")

// SlotStore defines the store interface needed by slot orchestrators.
type SlotStore interface {
	Add(ctx context.Context, s schedule.Slot) (schedule.Slot, error)
	Update(ctx context.Context, id string, s schedule.Slot) (schedule.Slot, error)
	Remove(ctx context.Context, id string) error
}

// SlotInput carries the editable fields of a slot. A slot is dated when
// StartDate or EndDate is set; its weekday fields are then ignored and
// derived from the dates. AnyTime builds the full-week sentinel.
type SlotInput struct {
	Title       string
	Description string
	Notes       string
	Type        string
	Color       string

	StartDay  string
	StartTime string
	EndDay    string
	EndTime   string

	StartDate time.Time
	EndDate   time.Time

	AnyTime bool
}

// BuildSlot turns input into a validated slot without an ID.
// PRE: none
// POST: Returns a valid slot or a schedule validation error
func BuildSlot(in SlotInput) (schedule.Slot, error) {
	details := schedule.Details{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Notes:       in.Notes,
		Type:        schedule.Kind(strings.ToLower(strings.TrimSpace(in.Type))),
		Color:       in.Color,
	}

	if in.AnyTime {
		s := schedule.NewAnyTimeSlot(details)
		return s, s.Validate()
	}
	if !in.StartDate.IsZero() || !in.EndDate.IsZero() {
		return schedule.NewDatedSlot(in.StartDate, in.EndDate, details)
	}

	start, err := weeklyTime(in.StartDay, in.StartTime)
	if err != nil {
		return schedule.Slot{}, err
	}
	end, err := weeklyTime(in.EndDay, in.EndTime)
	if err != nil {
		return schedule.Slot{}, err
	}
	return schedule.NewWeekdaySlot(start, end, details)
}

func weeklyTime(day, clock string) (schedule.WeeklyTime, error) {
	d, err := schedule.ParseWeekday(day)
	if err != nil {
		return schedule.WeeklyTime{}, err
	}
	h, m, err := schedule.ParseClock(clock)
	if err != nil {
		return schedule.WeeklyTime{}, err
	}
	return schedule.WeeklyTime{Day: d, Hour: h, Minute: m}, nil
}

// --- Create Slot ---

// CreateSlotInput carries input for the create slot orchestrator.
type CreateSlotInput struct {
	Branch string
	Slot   SlotInput
}

// CreateSlotDeps holds dependencies for CreateSlot.
type CreateSlotDeps struct {
	Store SlotStore
	// GenerateID is optional; the store assigns an id when nil.
	GenerateID func() string
}

// ExecuteCreateSlot adds a manually entered slot.
// PRE: input.Slot describes a valid slot
// POST: Slot persisted with an ID
func ExecuteCreateSlot(ctx context.Context, input CreateSlotInput, deps CreateSlotDeps) (schedule.Slot, error) {
	s, err := BuildSlot(input.Slot)
	if err != nil {
		return schedule.Slot{}, err
	}
	if deps.GenerateID != nil {
		s.ID = deps.GenerateID()
	}
	s, err = deps.Store.Add(ctx, s)
	if err != nil {
		return schedule.Slot{}, err
	}
	slog.Info("slot_event", "event", "slot_created", "branch", input.Branch, "slot_id", s.ID, "title", s.Title)
	return s, nil
}

// --- Update Slot ---

// UpdateSlotInput carries input for the update slot orchestrator.
type UpdateSlotInput struct {
	Branch string
	ID     string
	Slot   SlotInput
}

// UpdateSlotDeps holds dependencies for UpdateSlot.
type UpdateSlotDeps struct {
	Store SlotStore
}

// ExecuteUpdateSlot replaces a slot in place. The ID never changes.
// PRE: input.ID is non-empty and exists
// POST: Slot under input.ID holds the new fields
func ExecuteUpdateSlot(ctx context.Context, input UpdateSlotInput, deps UpdateSlotDeps) (schedule.Slot, error) {
	if input.ID == "" {
		return schedule.Slot{}, ErrSlotIDRequired
	}
	s, err := BuildSlot(input.Slot)
	if err != nil {
		return schedule.Slot{}, err
	}
	s, err = deps.Store.Update(ctx, input.ID, s)
	if err != nil {
		return schedule.Slot{}, err
	}
	slog.Info("slot_event", "event", "slot_updated", "branch", input.Branch, "slot_id", s.ID)
	return s, nil
}

// --- Delete Slot ---

// DeleteSlotInput carries input for the delete slot orchestrator.
type DeleteSlotInput struct {
	Branch string
	ID     string
}

// DeleteSlotDeps holds dependencies for DeleteSlot.
type DeleteSlotDeps struct {
	Store SlotStore
}

// ExecuteDeleteSlot removes a slot.
// PRE: input.ID is non-empty and exists
// POST: Slot no longer stored
func ExecuteDeleteSlot(ctx context.Context, input DeleteSlotInput, deps DeleteSlotDeps) error {
	if input.ID == "" {
		return ErrSlotIDRequired
	}
	if err := deps.Store.Remove(ctx, input.ID); err != nil {
		return err
	}
	slog.Info("slot_event", "event", "slot_deleted", "branch", input.Branch, "slot_id", input.ID)
	return nil
}
