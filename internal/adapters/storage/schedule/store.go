package schedule

import (
	"context"
	"fmt"

	domain "gymops/internal/domain/schedule"
)

// Store persists the slots of one schedule.
// Implementations return domain.ErrNotFound for unknown ids and
// domain.ErrDuplicateID for colliding ids, wrapped with context.
type Store interface {
	// Add validates s, assigns an id when empty and appends it.
	Add(ctx context.Context, s domain.Slot) (domain.Slot, error)
	// AddBatch adds every slot or none.
	AddBatch(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error)
	Update(ctx context.Context, id string, s domain.Slot) (domain.Slot, error)
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Slot, error)
	// All returns slots in insertion order.
	All(ctx context.Context) ([]domain.Slot, error)
}

// prepareBatch validates slots and assigns missing ids without touching
// any store. exists reports ids already persisted.
// PRE: newID is non-nil
// POST: Returns the slots with ids, or the first validation/duplicate error
func prepareBatch(slots []domain.Slot, newID func() string, exists func(id string) (bool, error)) ([]domain.Slot, error) {
	out := make([]domain.Slot, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for i, s := range slots {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if s.ID == "" {
			s.ID = newID()
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, s.ID)
		}
		found, err := exists(s.ID)
		if err != nil {
			return nil, err
		}
		if found {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
		out[i] = s
	}
	return out, nil
}
