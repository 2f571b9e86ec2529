package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	domain "gymops/internal/domain/schedule"
)

// MemoryStore keeps slots in process memory.
// Writers are serialized by mu and publish a fresh slice; readers load the
// published slice without locking and never see a partial write.
type MemoryStore struct {
	mu    sync.Mutex
	slots atomic.Pointer[[]domain.Slot]
	newID func() string
}

// Compile-time check that *MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store that assigns random UUIDs.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithIDs(func() string { return uuid.New().String() })
}

// NewMemoryStoreWithIDs creates an empty store with a custom id generator.
// PRE: newID returns a fresh id on every call
// POST: Returns an empty store
func NewMemoryStoreWithIDs(newID func() string) *MemoryStore {
	m := &MemoryStore{newID: newID}
	empty := []domain.Slot{}
	m.slots.Store(&empty)
	return m
}

func (m *MemoryStore) load() []domain.Slot {
	return *m.slots.Load()
}

func indexOf(slots []domain.Slot, id string) int {
	for i := range slots {
		if slots[i].ID == id {
			return i
		}
	}
	return -1
}

// Add validates s and appends it.
// PRE: s is populated
// POST: s is visible to readers with a non-empty id, or nothing changed
func (m *MemoryStore) Add(ctx context.Context, s domain.Slot) (domain.Slot, error) {
	added, err := m.AddBatch(ctx, []domain.Slot{s})
	if err != nil {
		return domain.Slot{}, err
	}
	return added[0], nil
}

// AddBatch appends all slots in one publish.
// PRE: slots are populated
// POST: Either every slot is visible or none is
func (m *MemoryStore) AddBatch(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.load()
	prepared, err := prepareBatch(slots, m.newID, func(id string) (bool, error) {
		return indexOf(current, id) >= 0, nil
	})
	if err != nil {
		return nil, err
	}

	next := make([]domain.Slot, 0, len(current)+len(prepared))
	next = append(next, current...)
	next = append(next, prepared...)
	m.slots.Store(&next)
	return prepared, nil
}

// Update replaces the slot stored under id, keeping its position.
// PRE: s is populated
// POST: The slot under id equals s, or ErrNotFound
func (m *MemoryStore) Update(ctx context.Context, id string, s domain.Slot) (domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Slot{}, err
	}
	s.ID = id
	if err := s.Validate(); err != nil {
		return domain.Slot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.load()
	i := indexOf(current, id)
	if i < 0 {
		return domain.Slot{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	next := make([]domain.Slot, len(current))
	copy(next, current)
	next[i] = s
	m.slots.Store(&next)
	return s, nil
}

// Remove deletes the slot stored under id.
func (m *MemoryStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.load()
	i := indexOf(current, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	next := make([]domain.Slot, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)
	m.slots.Store(&next)
	return nil
}

// Get returns the slot stored under id.
func (m *MemoryStore) Get(ctx context.Context, id string) (domain.Slot, error) {
	current := m.load()
	if i := indexOf(current, id); i >= 0 {
		return current[i], nil
	}
	return domain.Slot{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// All returns a copy of the current slots in insertion order.
func (m *MemoryStore) All(ctx context.Context) ([]domain.Slot, error) {
	current := m.load()
	out := make([]domain.Slot, len(current))
	copy(out, current)
	return out, nil
}
