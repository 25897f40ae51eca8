package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	Insert(ctx context.Context, b Book) (string, error)
	Find(ctx context.Context, f Filter) ([]Book, error)
	Get(ctx context.Context, id string) (Book, error)
	Update(ctx context.Context, id string, p Patch) (Book, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
