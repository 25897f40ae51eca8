package rating

import "context"

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=rating

// Repository stores one Aggregate per book.
type Repository interface {
	Initialize(ctx context.Context, id, title string) error
	Get(ctx context.Context, id string) (Aggregate, error)
	GetAll(ctx context.Context) ([]Aggregate, error)
	ApplyRating(ctx context.Context, id string, value int) (float64, error)
	// Rename updates the denormalised book title.
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	TopByAverage(ctx context.Context, n int, minAverage float64) ([]Aggregate, error)
}
