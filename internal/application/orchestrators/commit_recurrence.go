package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymops/internal/adapters/email"
	"gymops/internal/adapters/markdown"
	"gymops/internal/domain/recurrence"
	"gymops/internal/domain/schedule"
)

// RecurrenceStore defines the store interface needed to commit a recurrence.
type RecurrenceStore interface {
	All(ctx context.Context) ([]schedule.Slot, error)
	AddBatch(ctx context.Context, slots []schedule.Slot) ([]schedule.Slot, error)
}

// CommitRecurrenceInput carries the accepted preview.
type CommitRecurrenceInput struct {
	Branch                string
	WeekStart             time.Time
	Horizon               time.Time
	ExcludedSourceIDs     []string
	ExcludedOccurrenceIDs []string
}

// CommitRecurrenceDeps holds dependencies for CommitRecurrence.
type CommitRecurrenceDeps struct {
	Store RecurrenceStore
	// MaxWeeks caps the horizon; zero applies recurrence.DefaultMaxWeeks.
	MaxWeeks int
	// Sender and Recipients are optional; without both no summary is sent.
	Sender     email.Sender
	Recipients []string
}

// CommitRecurrenceResult reports what was written.
type CommitRecurrenceResult struct {
	Created  []schedule.Slot
	Notified bool
}

// ExecuteCommitRecurrence projects the source week forward and writes every
// occurrence in one batch. Ids are derived from (week, source), so
// committing the same projection twice fails with ErrDuplicateID instead
// of duplicating slots. The summary email is best effort: a delivery
// failure is logged and does not undo the commit.
// PRE: input.Horizon is beyond the source week and within MaxWeeks
// POST: All occurrences persisted, or none
func ExecuteCommitRecurrence(ctx context.Context, input CommitRecurrenceInput, deps CommitRecurrenceDeps) (CommitRecurrenceResult, error) {
	if err := recurrence.CheckHorizon(input.WeekStart, input.Horizon, deps.MaxWeeks); err != nil {
		return CommitRecurrenceResult{}, err
	}
	all, err := deps.Store.All(ctx)
	if err != nil {
		return CommitRecurrenceResult{}, err
	}
	occs, err := recurrence.Generate(recurrence.Request{
		WeekStart:             input.WeekStart,
		Horizon:               input.Horizon,
		Slots:                 all,
		ExcludedSourceIDs:     input.ExcludedSourceIDs,
		ExcludedOccurrenceIDs: input.ExcludedOccurrenceIDs,
		IDs:                   recurrence.CommitIDs{},
	})
	if err != nil {
		return CommitRecurrenceResult{}, err
	}

	created, err := deps.Store.AddBatch(ctx, recurrence.Slots(occs))
	if err != nil {
		return CommitRecurrenceResult{}, fmt.Errorf("commit %d occurrences: %w", len(occs), err)
	}

	weekStart := schedule.StartOfWeek(input.WeekStart)
	slog.Info("recurrence_event",
		"event", "recurrence_committed",
		"branch", input.Branch,
		"source_week", weekStart.Format(schedule.DateLayout),
		"horizon", schedule.Naive(input.Horizon).Format(schedule.DateLayout),
		"created", len(created),
	)

	result := CommitRecurrenceResult{Created: created}
	if deps.Sender == nil || len(deps.Recipients) == 0 {
		return result, nil
	}
	body := commitSummary(input.Branch, weekStart, input.Horizon, created)
	_, err = deps.Sender.Send(ctx, email.SendRequest{
		To:      deps.Recipients,
		Subject: fmt.Sprintf("[%s] %d slots added from week of %s", input.Branch, len(created), weekStart.Format("2 Jan 2006")),
		HTML:    markdown.ToHTML(body),
		Text:    body,
	})
	if err != nil {
		slog.Warn("recurrence_notify_failed", "branch", input.Branch, "error", err)
		return result, nil
	}
	result.Notified = true
	return result, nil
}

// commitSummary renders the markdown body of the commit notification.
func commitSummary(branch string, weekStart, horizon time.Time, created []schedule.Slot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%d** slots were added to the **%s** schedule, repeating the week of %s through %s.\n\n",
		len(created), branch, weekStart.Format("Mon 2 Jan 2006"), schedule.Naive(horizon).Format("Mon 2 Jan 2006"))
	for _, s := range created {
		a, ok := s.Dated()
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s %s-%s %s\n", a.Start.Format("Mon 2 Jan"), a.Start.Format("15:04"), a.End.Format("15:04"), s.Title)
	}
	return b.String()
}
