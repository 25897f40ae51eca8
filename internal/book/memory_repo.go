package book

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is a Repository kept in process memory. Find returns books in
// insertion order.
type MemoryRepo struct {
	mu     sync.RWMutex
	books  map[string]Book
	byISBN map[string]string
	order  []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		books:  make(map[string]Book),
		byISBN: make(map[string]string),
	}
}

func (r *MemoryRepo) Insert(_ context.Context, b Book) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byISBN[b.ISBN]; exists {
		return "", ErrDuplicateISBN
	}
	b.ID = uuid.NewString()
	r.books[b.ID] = b
	r.byISBN[b.ISBN] = b.ID
	r.order = append(r.order, b.ID)
	return b.ID, nil
}

func (r *MemoryRepo) Find(_ context.Context, f Filter) ([]Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Book{}
	for _, id := range r.order {
		if b := r.books[id]; f.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) Update(_ context.Context, id string, p Patch) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	updated := p.Apply(current)
	if updated.ISBN != current.ISBN {
		if owner, exists := r.byISBN[updated.ISBN]; exists && owner != id {
			return Book{}, ErrDuplicateISBN
		}
		delete(r.byISBN, current.ISBN)
		r.byISBN[updated.ISBN] = id
	}
	r.books[id] = updated
	return updated, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return nil
	}
	delete(r.books, id)
	delete(r.byISBN, b.ISBN)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepo) Ping(context.Context) error { return nil }
