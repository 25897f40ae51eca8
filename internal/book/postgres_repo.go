package book

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const uniqueViolation = "23505"

var columns = map[string]string{
	FieldID:            "id",
	FieldISBN:          "isbn",
	FieldTitle:         "title",
	FieldGenre:         "genre",
	FieldAuthors:       "authors",
	FieldPublisher:     "publisher",
	FieldPublishedDate: "published_date",
}

const selectColumns = `id, isbn, title, genre, authors, publisher, published_date`

type PostgresRepo struct {
	db      DB
	timeout time.Duration
}

func NewPostgresRepo(db DB, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Insert(ctx context.Context, b Book) (string, error) {
	const query = `
		INSERT INTO books (id, isbn, title, genre, authors, publisher, published_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	id := uuid.NewString()
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, id, b.ISBN, b.Title, b.Genre, b.Authors, b.Publisher, b.PublishedDate)
	if err != nil {
		return "", mapWriteError(err)
	}
	return id, nil
}

func (r *PostgresRepo) Find(ctx context.Context, f Filter) ([]Book, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		if _, ok := columns[k]; !ok {
			// unknown fields match nothing
			return []Book{}, nil
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := []string{"1=1"}
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", columns[k], i+1))
		args = append(args, f[k])
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE %s ORDER BY created_at, id`,
		selectColumns, strings.Join(clauses, " AND "))

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Genre, &b.Authors, &b.Publisher, &b.PublishedDate); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Book, error) {
	query := `SELECT ` + selectColumns + ` FROM books WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var b Book
	err := r.db.QueryRow(timeoutCtx, query, id).Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Genre, &b.Authors, &b.Publisher, &b.PublishedDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, p Patch) (Book, error) {
	if p.IsEmpty() {
		return r.Get(ctx, id)
	}

	sets := []string{}
	args := []any{}
	add := func(field string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", columns[field], len(args)))
	}
	add(FieldISBN, p.ISBN)
	add(FieldTitle, p.Title)
	add(FieldGenre, p.Genre)
	add(FieldAuthors, p.Authors)
	add(FieldPublisher, p.Publisher)
	add(FieldPublishedDate, p.PublishedDate)
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE books SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), selectColumns)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var b Book
	err := r.db.QueryRow(timeoutCtx, query, args...).Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Genre, &b.Authors, &b.Publisher, &b.PublishedDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, mapWriteError(err)
	}
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateISBN
	}
	return err
}
