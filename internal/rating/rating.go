package rating

import "errors"

var (
	ErrNotFound      = errors.New("rating aggregate not found")
	ErrAlreadyExists = errors.New("rating aggregate already exists")
	// ErrInvalidValue is returned for rating values outside [MinValue, MaxValue].
	ErrInvalidValue = errors.New("rating must be an integer between 1 and 5")
	// ErrConcurrentUpdate is returned when an optimistic update keeps losing
	// against concurrent writers.
	ErrConcurrentUpdate = errors.New("rating aggregate changed concurrently")
)

// Aggregate holds every rating value submitted for a book and their mean.
// It shares its ID with the book it belongs to.
type Aggregate struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Values  []int   `json:"values"`
	Average float64 `json:"average"`

	// Version increases on every write; used for compare-and-swap updates.
	Version int64 `json:"-"`
}

// NewAggregate returns an empty aggregate for the given book.
func NewAggregate(id, title string) Aggregate {
	return Aggregate{ID: id, Title: title, Values: []int{}, Average: 0}
}
