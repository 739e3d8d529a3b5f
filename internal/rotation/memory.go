package rotation

import (
	"context"
	"sync"
	"time"
)

// MemoryStateRepository keeps rotation state in memory.
type MemoryStateRepository struct {
	mu     sync.RWMutex
	states map[string]*State
	now    func() time.Time
}

// NewMemoryStateRepository constructs an empty memory-backed state repository.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

func (r *MemoryStateRepository) Get(_ context.Context, siteID string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[siteID]
	if !ok {
		return nil, &NotFoundError{Resource: "rotation_state", Key: siteID}
	}
	return cloneState(state), nil
}

func (r *MemoryStateRepository) Save(_ context.Context, state *State, expectedVersion int64) (*State, error) {
	if state == nil {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.states[state.SiteID]
	switch {
	case !exists && expectedVersion != 0:
		return nil, ErrVersionConflict
	case exists && current.Version != expectedVersion:
		return nil, ErrVersionConflict
	}

	next := cloneState(state)
	next.Version = expectedVersion + 1
	next.UpdatedAt = r.now()
	if exists {
		next.CreatedAt = current.CreatedAt
	} else if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}
	r.states[next.SiteID] = next
	return cloneState(next), nil
}

func (r *MemoryStateRepository) Delete(_ context.Context, siteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.states[siteID]; !ok {
		return &NotFoundError{Resource: "rotation_state", Key: siteID}
	}
	delete(r.states, siteID)
	return nil
}

func (r *MemoryStateRepository) TemplateUsage(_ context.Context) (map[int]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	usage := make(map[int]int)
	for _, state := range r.states {
		for id, count := range state.TemplateCounts {
			usage[id] += count
		}
	}
	return usage, nil
}
