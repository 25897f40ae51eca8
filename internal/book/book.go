package book

import (
	"errors"
	"slices"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateISBN is returned when another book already owns the ISBN.
	ErrDuplicateISBN = errors.New("book with this ISBN already exists")
)

// Book represents a book entity.
type Book struct {
	ID            string `json:"id"`
	ISBN          string `json:"ISBN"`
	Title         string `json:"title"`
	Genre         string `json:"genre"`
	Authors       string `json:"authors"`
	Publisher     string `json:"publisher"`
	PublishedDate string `json:"publishedDate"`
}

// Filterable field names, as they appear in JSON and in query strings.
const (
	FieldID            = "id"
	FieldISBN          = "ISBN"
	FieldTitle         = "title"
	FieldGenre         = "genre"
	FieldAuthors       = "authors"
	FieldPublisher     = "publisher"
	FieldPublishedDate = "publishedDate"
)

// Field returns the value of the named field.
func (b Book) Field(name string) (string, bool) {
	switch name {
	case FieldID:
		return b.ID, true
	case FieldISBN:
		return b.ISBN, true
	case FieldTitle:
		return b.Title, true
	case FieldGenre:
		return b.Genre, true
	case FieldAuthors:
		return b.Authors, true
	case FieldPublisher:
		return b.Publisher, true
	case FieldPublishedDate:
		return b.PublishedDate, true
	}
	return "", false
}

// Genres lists the accepted genre values.
var Genres = []string{"Fiction", "Children", "Biography", "Science", "Science Fiction", "Fantasy", "Other"}

func IsValidGenre(genre string) bool {
	return slices.Contains(Genres, genre)
}

// Filter is an exact-match conjunction keyed by field name.
// An empty filter matches every book.
type Filter map[string]string

// Matches reports whether b satisfies every entry of f. Keys that are not
// book fields never match.
func (f Filter) Matches(b Book) bool {
	for name, want := range f {
		got, ok := b.Field(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Patch holds the fields to merge into a stored book. Nil fields are left untouched.
type Patch struct {
	ISBN          *string
	Title         *string
	Genre         *string
	Authors       *string
	Publisher     *string
	PublishedDate *string
}

func (p Patch) IsEmpty() bool {
	return p.ISBN == nil && p.Title == nil && p.Genre == nil &&
		p.Authors == nil && p.Publisher == nil && p.PublishedDate == nil
}

// Apply returns b with the patch merged in.
func (p Patch) Apply(b Book) Book {
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.Authors != nil {
		b.Authors = *p.Authors
	}
	if p.Publisher != nil {
		b.Publisher = *p.Publisher
	}
	if p.PublishedDate != nil {
		b.PublishedDate = *p.PublishedDate
	}
	return b
}
