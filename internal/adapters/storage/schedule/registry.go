package schedule

import (
	"errors"
	"strings"
	"sync"
)

// ErrInvalidBranch is returned for an empty or malformed branch id.
var ErrInvalidBranch = errors.New("branch id must be non-empty and contain no '/'")

// Registry hands out one Store per branch, creating stores on first use.
// Each branch's writes are serialized by its own store.
type Registry struct {
	mu     sync.Mutex
	stores map[string]Store
	open   func(branch string) Store
}

// NewRegistry creates a registry that builds stores with open.
// PRE: open is non-nil
// POST: Returns an empty registry
func NewRegistry(open func(branch string) Store) *Registry {
	return &Registry{stores: make(map[string]Store), open: open}
}

// NewMemoryRegistry creates a registry of in-memory stores.
func NewMemoryRegistry() *Registry {
	return NewRegistry(func(string) Store { return NewMemoryStore() })
}

// For returns the store for branch.
// PRE: none
// POST: Repeated calls with the same branch return the same store
func (r *Registry) For(branch string) (Store, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" || strings.Contains(branch, "/") {
		return nil, ErrInvalidBranch
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[branch]; ok {
		return s, nil
	}
	s := r.open(branch)
	r.stores[branch] = s
	return s, nil
}

// Branches lists the branches opened so far.
func (r *Registry) Branches() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.stores))
	for b := range r.stores {
		out = append(out, b)
	}
	return out
}
