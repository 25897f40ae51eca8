// Package catalog keeps books and their rating aggregates consistent with
// each other and exposes them over HTTP.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"bookcatalog/internal/book"
	"bookcatalog/internal/metadata"
	"bookcatalog/internal/platform/metrics"
	"bookcatalog/internal/rating"
)

const DefaultLookupTimeout = 5 * time.Second

// CreateBookInput is what a caller supplies for a new book. The remaining
// fields come from the metadata lookup.
type CreateBookInput struct {
	ISBN  string
	Title string
	Genre string
}

// ReplaceBookInput is a full book record. ID must match the book being replaced.
type ReplaceBookInput struct {
	ID            string
	ISBN          string
	Title         string
	Genre         string
	Authors       string
	Publisher     string
	PublishedDate string
}

type Service struct {
	books         book.Repository
	ratings       rating.Repository
	lookup        metadata.Lookup
	lookupTimeout time.Duration
	logger        *zap.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLookupTimeout bounds each metadata lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) { s.lookupTimeout = d }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(books book.Repository, ratings rating.Repository, lookup metadata.Lookup, opts ...Option) *Service {
	s := &Service{
		books:         books,
		ratings:       ratings,
		lookup:        lookup,
		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("bookcatalog/internal/catalog")
	}
	if s.lookupTimeout <= 0 {
		s.lookupTimeout = DefaultLookupTimeout
	}
	return s
}

// CreateBook enriches the input with provider metadata and stores the book
// together with an empty rating aggregate. Either both records exist
// afterwards or neither does.
func (s *Service) CreateBook(ctx context.Context, in CreateBookInput) (id string, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.CreateBook",
		trace.WithAttributes(attribute.String("book.isbn", in.ISBN)))
	defer func() { finishSpan(span, err) }()

	if err := validateCreate(in); err != nil {
		return "", err
	}

	existing, err := s.books.Find(ctx, book.Filter{book.FieldISBN: in.ISBN})
	if err != nil {
		return "", fmt.Errorf("check isbn: %w", err)
	}
	if len(existing) > 0 {
		return "", ErrConflict
	}

	meta, err := s.enrich(ctx, in.ISBN)
	if err != nil {
		return "", err
	}

	b := book.Book{
		ISBN:          in.ISBN,
		Title:         in.Title,
		Genre:         in.Genre,
		Authors:       meta.Authors,
		Publisher:     meta.Publisher,
		PublishedDate: meta.PublishedDate,
	}
	id, err = s.books.Insert(ctx, b)
	if err != nil {
		if errors.Is(err, book.ErrDuplicateISBN) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert book: %w", err)
	}

	if err := s.ratings.Initialize(ctx, id, in.Title); err != nil {
		return "", s.compensateCreate(ctx, id, err)
	}

	s.metrics.BooksCreated.Inc()
	s.logger.Info("book created", zap.String("book_id", id), zap.String("isbn", in.ISBN))
	return id, nil
}

func (s *Service) enrich(ctx context.Context, isbn string) (metadata.Metadata, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	meta, err := s.lookup.Lookup(lookupCtx, isbn)
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, metadata.ErrNotFound):
			reason = "not_found"
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		}
		s.metrics.LookupFailures.WithLabelValues(reason).Inc()
		s.logger.Warn("metadata lookup failed",
			zap.String("isbn", isbn), zap.String("reason", reason), zap.Error(err))
		return metadata.Metadata{}, fmt.Errorf("%w: %w", ErrEnrichment, err)
	}
	return meta.WithDefaults(), nil
}

// compensateCreate removes a book whose aggregate could not be created.
// The deletion runs even if the caller has gone away.
func (s *Service) compensateCreate(ctx context.Context, id string, cause error) error {
	ctx = context.WithoutCancel(ctx)

	if err := s.books.Delete(ctx, id); err != nil {
		s.metrics.Compensations.WithLabelValues("failed").Inc()
		s.logger.Error("book left without rating aggregate",
			zap.String("book_id", id), zap.NamedError("cause", cause), zap.Error(err))
		return fmt.Errorf("initialize ratings for %s: %w (rollback failed: %v)", id, cause, err)
	}

	s.metrics.Compensations.WithLabelValues("rolled_back").Inc()
	s.logger.Warn("book creation rolled back",
		zap.String("book_id", id), zap.Error(cause))
	return fmt.Errorf("initialize ratings for %s: %w", id, cause)
}

// ListBooks returns the books matching every entry of f.
func (s *Service) ListBooks(ctx context.Context, f book.Filter) (books []book.Book, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListBooks")
	defer func() { finishSpan(span, err) }()

	books, err = s.books.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	if books == nil {
		books = []book.Book{}
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id string) (b book.Book, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetBook",
		trace.WithAttributes(attribute.String("book.id", id)))
	defer func() { finishSpan(span, err) }()

	b, err = s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return book.Book{}, ErrNotFound
		}
		return book.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// DeleteBook removes the book and then its aggregate. Deleting an unknown id
// succeeds, so a failed delete can be retried to finish the job.
func (s *Service) DeleteBook(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.DeleteBook",
		trace.WithAttributes(attribute.String("book.id", id)))
	defer func() { finishSpan(span, err) }()

	if err := s.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if err := s.ratings.Delete(ctx, id); err != nil {
		s.logger.Error("rating aggregate left without book", zap.String("book_id", id), zap.Error(err))
		return fmt.Errorf("delete ratings: %w", err)
	}

	s.metrics.BooksDeleted.Inc()
	s.logger.Info("book deleted", zap.String("book_id", id))
	return nil
}

// ReplaceBook overwrites every field of an existing book.
func (s *Service) ReplaceBook(ctx context.Context, id string, in ReplaceBookInput) (_ string, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ReplaceBook",
		trace.WithAttributes(attribute.String("book.id", id)))
	defer func() { finishSpan(span, err) }()

	if err := validateReplace(id, in); err != nil {
		return "", err
	}

	current, err := s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get book: %w", err)
	}

	owners, err := s.books.Find(ctx, book.Filter{book.FieldISBN: in.ISBN})
	if err != nil {
		return "", fmt.Errorf("check isbn: %w", err)
	}
	for _, o := range owners {
		if o.ID != id {
			return "", ErrConflict
		}
	}

	_, err = s.books.Update(ctx, id, book.Patch{
		ISBN:          &in.ISBN,
		Title:         &in.Title,
		Genre:         &in.Genre,
		Authors:       &in.Authors,
		Publisher:     &in.Publisher,
		PublishedDate: &in.PublishedDate,
	})
	switch {
	case errors.Is(err, book.ErrNotFound):
		return "", ErrNotFound
	case errors.Is(err, book.ErrDuplicateISBN):
		return "", ErrConflict
	case err != nil:
		return "", fmt.Errorf("update book: %w", err)
	}

	if current.Title != in.Title {
		if err := s.ratings.Rename(ctx, id, in.Title); err != nil {
			s.logger.Error("rating title out of sync", zap.String("book_id", id), zap.Error(err))
			return "", fmt.Errorf("rename rating aggregate: %w", err)
		}
	}
	return id, nil
}

// RateBook records value for the book and returns the new average.
func (s *Service) RateBook(ctx context.Context, id string, value int) (avg float64, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.RateBook",
		trace.WithAttributes(attribute.String("book.id", id), attribute.Int("rating.value", value)))
	defer func() { finishSpan(span, err) }()

	if err := rating.ValidateValue(value); err != nil {
		return 0, &ValidationError{Fields: []FieldError{{Field: "value", Message: err.Error()}}}
	}

	avg, err = s.ratings.ApplyRating(ctx, id, value)
	if err != nil {
		if errors.Is(err, rating.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("apply rating: %w", err)
	}

	s.metrics.RatingsSubmitted.Inc()
	return avg, nil
}

func (s *Service) ListRatings(ctx context.Context) (aggs []rating.Aggregate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListRatings")
	defer func() { finishSpan(span, err) }()

	aggs, err = s.ratings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	if aggs == nil {
		aggs = []rating.Aggregate{}
	}
	return aggs, nil
}

func (s *Service) GetRatings(ctx context.Context, id string) (agg rating.Aggregate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetRatings",
		trace.WithAttributes(attribute.String("book.id", id)))
	defer func() { finishSpan(span, err) }()

	agg, err = s.ratings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, rating.ErrNotFound) {
			return rating.Aggregate{}, ErrNotFound
		}
		return rating.Aggregate{}, fmt.Errorf("get ratings: %w", err)
	}
	return agg, nil
}

// TopBooks returns up to three aggregates averaging at least 3.0, best first.
func (s *Service) TopBooks(ctx context.Context) (aggs []rating.Aggregate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.TopBooks")
	defer func() { finishSpan(span, err) }()

	aggs, err = s.ratings.TopByAverage(ctx, rating.DefaultTopN, rating.DefaultMinAverage)
	if err != nil {
		return nil, fmt.Errorf("top ratings: %w", err)
	}
	if aggs == nil {
		aggs = []rating.Aggregate{}
	}
	return aggs, nil
}

// Ping reports whether the book store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.books.Ping(ctx)
}

func validateCreate(in CreateBookInput) error {
	ve := &ValidationError{}
	if in.ISBN == "" {
		ve.add("ISBN", "ISBN is required")
	}
	if in.Title == "" {
		ve.add("title", "title is required")
	}
	checkGenre(ve, in.Genre)
	return ve.orNil()
}

func validateReplace(id string, in ReplaceBookInput) error {
	ve := &ValidationError{}
	required := []struct{ field, value string }{
		{book.FieldID, in.ID},
		{book.FieldISBN, in.ISBN},
		{book.FieldTitle, in.Title},
		{book.FieldAuthors, in.Authors},
		{book.FieldPublisher, in.Publisher},
		{book.FieldPublishedDate, in.PublishedDate},
	}
	for _, r := range required {
		if r.value == "" {
			ve.add(r.field, r.field+" is required")
		}
	}
	checkGenre(ve, in.Genre)
	if in.ID != "" && in.ID != id {
		ve.add(book.FieldID, "id must match the book being replaced")
	}
	return ve.orNil()
}

func checkGenre(ve *ValidationError, genre string) {
	switch {
	case genre == "":
		ve.add(book.FieldGenre, "genre is required")
	case !book.IsValidGenre(genre):
		ve.add(book.FieldGenre, fmt.Sprintf("genre must be one of %v", book.Genres))
	}
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
