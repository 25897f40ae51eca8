// Package metadata defines the book-data lookup used to enrich new books,
// plus decorators that cache and deduplicate lookups.
package metadata

import (
	"context"
	"errors"
)

// Missing is stored for any enrichment field the provider did not supply.
const Missing = "missing"

// ErrNotFound is returned when the provider has no record for an ISBN.
var ErrNotFound = errors.New("no metadata found for ISBN")

// Metadata is the enrichment data attached to a book at creation time.
type Metadata struct {
	Authors       string `json:"authors"`
	Publisher     string `json:"publisher"`
	PublishedDate string `json:"publishedDate"`
}

// WithDefaults replaces empty fields with Missing.
func (m Metadata) WithDefaults() Metadata {
	if m.Authors == "" {
		m.Authors = Missing
	}
	if m.Publisher == "" {
		m.Publisher = Missing
	}
	if m.PublishedDate == "" {
		m.PublishedDate = Missing
	}
	return m
}

// Lookup resolves an ISBN to its metadata.
type Lookup interface {
	Lookup(ctx context.Context, isbn string) (Metadata, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, isbn string) (Metadata, error)

func (f LookupFunc) Lookup(ctx context.Context, isbn string) (Metadata, error) {
	return f(ctx, isbn)
}
