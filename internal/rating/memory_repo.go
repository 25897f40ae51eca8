package rating

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepo keeps aggregates in process memory. A single mutex serialises
// the read-modify-write in ApplyRating.
type MemoryRepo struct {
	mu         sync.RWMutex
	aggregates map[string]Aggregate
	order      []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{aggregates: make(map[string]Aggregate)}
}

func (r *MemoryRepo) Initialize(_ context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.aggregates[id]; exists {
		return ErrAlreadyExists
	}
	r.aggregates[id] = NewAggregate(id, title)
	r.order = append(r.order, id)
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg, ok := r.aggregates[id]
	if !ok {
		return Aggregate{}, ErrNotFound
	}
	return clone(agg), nil
}

func (r *MemoryRepo) GetAll(_ context.Context) ([]Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Aggregate, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.aggregates[id]))
	}
	return out, nil
}

func (r *MemoryRepo) ApplyRating(_ context.Context, id string, value int) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.aggregates[id]
	if !ok {
		return 0, ErrNotFound
	}
	next, err := Apply(current, value)
	if err != nil {
		return 0, err
	}
	next.Version++
	r.aggregates[id] = next
	return next.Average, nil
}

func (r *MemoryRepo) Rename(_ context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggregates[id]
	if !ok {
		return ErrNotFound
	}
	agg.Title = title
	agg.Version++
	r.aggregates[id] = agg
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.aggregates[id]; !ok {
		return nil
	}
	delete(r.aggregates, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *MemoryRepo) TopByAverage(ctx context.Context, n int, minAverage float64) ([]Aggregate, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return SelectTop(all, n, minAverage), nil
}

func clone(agg Aggregate) Aggregate {
	agg.Values = slices.Clone(agg.Values)
	if agg.Values == nil {
		agg.Values = []int{}
	}
	return agg
}
