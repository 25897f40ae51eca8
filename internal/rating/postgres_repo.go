package rating

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	uniqueViolation = "23505"

	// DefaultMaxAttempts bounds the optimistic retry loop in ApplyRating.
	DefaultMaxAttempts = 10
)

const selectColumns = `id, title, rating_values, average, version`

type PostgresRepo struct {
	db          DB
	timeout     time.Duration
	maxAttempts int
}

func NewPostgresRepo(db DB, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout, maxAttempts: DefaultMaxAttempts}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Initialize(ctx context.Context, id, title string) error {
	const query = `
		INSERT INTO ratings (id, title, rating_values, average, version, created_at)
		VALUES ($1, $2, '{}', 0, 0, NOW())`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Exec(timeoutCtx, query, id, title); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Aggregate, error) {
	query := `SELECT ` + selectColumns + ` FROM ratings WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	agg, err := scanAggregate(r.db.QueryRow(timeoutCtx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Aggregate{}, ErrNotFound
		}
		return Aggregate{}, err
	}
	return agg, nil
}

func (r *PostgresRepo) GetAll(ctx context.Context) ([]Aggregate, error) {
	query := `SELECT ` + selectColumns + ` FROM ratings ORDER BY created_at, id`
	return r.list(ctx, query)
}

// ApplyRating appends value with a compare-and-swap on version, re-reading
// and retrying when another writer got there first.
func (r *PostgresRepo) ApplyRating(ctx context.Context, id string, value int) (float64, error) {
	const update = `
		UPDATE ratings SET rating_values = $1, average = $2, version = version + 1
		WHERE id = $3 AND version = $4`

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		current, err := r.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		next, err := Apply(current, value)
		if err != nil {
			return 0, err
		}

		timeoutCtx, cancel := r.withTimeout(ctx)
		tag, err := r.db.Exec(timeoutCtx, update, next.Values, next.Average, id, current.Version)
		cancel()
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 1 {
			return next.Average, nil
		}
	}
	return 0, ErrConcurrentUpdate
}

func (r *PostgresRepo) Rename(ctx context.Context, id, title string) error {
	const query = `UPDATE ratings SET title = $1, version = version + 1 WHERE id = $2`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, title, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, `DELETE FROM ratings WHERE id = $1`, id)
	return err
}

// TopByAverage pushes SelectTop's filter, order and limit down to SQL.
func (r *PostgresRepo) TopByAverage(ctx context.Context, n int, minAverage float64) ([]Aggregate, error) {
	if n <= 0 {
		return []Aggregate{}, nil
	}
	query := `SELECT ` + selectColumns + ` FROM ratings
		WHERE average >= $1
		ORDER BY average DESC, id ASC
		LIMIT $2`
	return r.list(ctx, query, minAverage, n)
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]Aggregate, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Aggregate{}
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func scanAggregate(row pgx.Row) (Aggregate, error) {
	var agg Aggregate
	if err := row.Scan(&agg.ID, &agg.Title, &agg.Values, &agg.Average, &agg.Version); err != nil {
		return Aggregate{}, err
	}
	if agg.Values == nil {
		agg.Values = []int{}
	}
	return agg, nil
}
