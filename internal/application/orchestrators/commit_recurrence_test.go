package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gymops/internal/adapters/email"
	storage "gymops/internal/adapters/storage/schedule"
	"gymops/internal/domain/recurrence"
	"gymops/internal/domain/schedule"
)

// failingSender implements email.Sender and always fails.
type failingSender struct{ calls int }

func (f *failingSender) Send(_ context.Context, _ email.SendRequest) (email.SendResult, error) {
	f.calls++
	return email.SendResult{}, errors.New("provider down")
}

var (
	weekOfJan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan15      = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
)

func sourceWeek(t *testing.T) []schedule.Slot {
	t.Helper()
	var out []schedule.Slot
	for _, src := range []struct {
		id, title string
		start     time.Time
	}{
		{"bjj", "BJJ", time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)},
		{"wrestling", "Wrestling", time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC)},
	} {
		s, err := schedule.NewDatedSlot(src.start, src.start.Add(time.Hour), schedule.Details{Title: src.title, Type: schedule.KindClass})
		if err != nil {
			t.Fatalf("NewDatedSlot: %v", err)
		}
		s.ID = src.id
		out = append(out, s)
	}
	return out
}

func TestExecuteCommitRecurrence(t *testing.T) {
	store := &mockSlotStore{slots: sourceWeek(t)}
	sender := email.NewNoopSender()

	res, err := ExecuteCommitRecurrence(context.Background(), CommitRecurrenceInput{
		Branch:    "north",
		WeekStart: weekOfJan1,
		Horizon:   jan15,
	}, CommitRecurrenceDeps{Store: store, Sender: sender, Recipients: []string{"ops@example.com"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Week 1: both sources. Week 2: only bjj starts on or before Jan 15.
	if len(res.Created) != 3 {
		t.Fatalf("created = %d, want 3", len(res.Created))
	}
	if store.batches != 1 {
		t.Errorf("batches = %d, want a single batch", store.batches)
	}
	if want := (recurrence.CommitIDs{}).OccurrenceID(1, "bjj"); res.Created[0].ID != want {
		t.Errorf("first id = %q, want %q", res.Created[0].ID, want)
	}
	if !res.Notified {
		t.Error("expected summary to be sent")
	}
	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Subject, "[north] 3 slots") {
		t.Errorf("subject = %q", sent[0].Subject)
	}
	if !strings.Contains(sent[0].HTML, "<li>") || !strings.Contains(sent[0].Text, "Mon 8 Jan 06:00-07:00 BJJ") {
		t.Errorf("body = %q / %q", sent[0].HTML, sent[0].Text)
	}
}

func TestExecuteCommitRecurrence_Exclusions(t *testing.T) {
	store := &mockSlotStore{slots: sourceWeek(t)}
	res, err := ExecuteCommitRecurrence(context.Background(), CommitRecurrenceInput{
		WeekStart:             weekOfJan1,
		Horizon:               jan15,
		ExcludedSourceIDs:     []string{"wrestling"},
		ExcludedOccurrenceIDs: []string{recurrence.PreviewID(1, "bjj")},
	}, CommitRecurrenceDeps{Store: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("created = %d, want 1", len(res.Created))
	}
	a, _ := res.Created[0].Dated()
	if !a.Start.Equal(time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, want Jan 15 06:00", a.Start)
	}
	if res.Notified {
		t.Error("no sender configured, nothing should be sent")
	}
}

func TestExecuteCommitRecurrence_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input CommitRecurrenceInput
		deps  func(*mockSlotStore) CommitRecurrenceDeps
		want  error
	}{
		{
			"horizon too far",
			CommitRecurrenceInput{WeekStart: weekOfJan1, Horizon: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			func(s *mockSlotStore) CommitRecurrenceDeps { return CommitRecurrenceDeps{Store: s, MaxWeeks: 4} },
			recurrence.ErrHorizonTooFar,
		},
		{
			"no occurrences",
			CommitRecurrenceInput{WeekStart: weekOfJan1, Horizon: weekOfJan1},
			func(s *mockSlotStore) CommitRecurrenceDeps { return CommitRecurrenceDeps{Store: s} },
			recurrence.ErrNoOccurrences,
		},
		{
			"empty selection",
			CommitRecurrenceInput{WeekStart: weekOfJan1, Horizon: jan15, ExcludedSourceIDs: []string{"bjj", "wrestling"}},
			func(s *mockSlotStore) CommitRecurrenceDeps { return CommitRecurrenceDeps{Store: s} },
			recurrence.ErrEmptySelection,
		},
		{
			"batch rejected",
			CommitRecurrenceInput{WeekStart: weekOfJan1, Horizon: jan15},
			func(s *mockSlotStore) CommitRecurrenceDeps {
				s.batchErr = schedule.ErrDuplicateID
				return CommitRecurrenceDeps{Store: s}
			},
			schedule.ErrDuplicateID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockSlotStore{slots: sourceWeek(t)}
			_, err := ExecuteCommitRecurrence(context.Background(), tt.input, tt.deps(store))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(store.slots) != 2 {
				t.Errorf("stored = %d, want only the 2 sources", len(store.slots))
			}
		})
	}
}

func TestExecuteCommitRecurrence_NotifyFailureKeepsCommit(t *testing.T) {
	store := &mockSlotStore{slots: sourceWeek(t)}
	sender := &failingSender{}
	res, err := ExecuteCommitRecurrence(context.Background(), CommitRecurrenceInput{WeekStart: weekOfJan1, Horizon: jan15},
		CommitRecurrenceDeps{Store: store, Sender: sender, Recipients: []string{"ops@example.com"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 1 || res.Notified {
		t.Errorf("calls = %d notified = %v, want 1 and false", sender.calls, res.Notified)
	}
	if len(store.slots) != 5 {
		t.Errorf("stored = %d, want 5", len(store.slots))
	}
}

func TestExecuteCommitRecurrence_TwiceCollides(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if _, err := store.AddBatch(ctx, sourceWeek(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	input := CommitRecurrenceInput{WeekStart: weekOfJan1, Horizon: jan15}
	deps := CommitRecurrenceDeps{Store: store}

	if _, err := ExecuteCommitRecurrence(ctx, input, deps); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if _, err := ExecuteCommitRecurrence(ctx, input, deps); !errors.Is(err, schedule.ErrDuplicateID) {
		t.Errorf("second commit err = %v, want ErrDuplicateID", err)
	}
	all, _ := store.All(ctx)
	if len(all) != 5 {
		t.Errorf("stored = %d, want 5", len(all))
	}
}
