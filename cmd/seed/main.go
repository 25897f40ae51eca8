package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookcatalog/internal/book"
	"bookcatalog/internal/platform/config"
	"bookcatalog/internal/platform/logger"
	"bookcatalog/internal/rating"
)

type CLI struct {
	Count      int   `help:"Number of books to create" default:"200"`
	MaxRatings int   `help:"Upper bound of ratings submitted per book" default:"8"`
	Workers    int   `help:"Concurrent writers" default:"8"`
	Seed       int64 `help:"Random seed; 0 uses the current time" default:"0"`
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Name("seed"), kong.Description("Fill the catalog with demo books and ratings."))

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DB.DSN == "" {
		return errors.New("DB_DSN is required")
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	s := &seeder{
		books:   book.NewPostgresRepo(pool, cfg.DB.Timeout),
		ratings: rating.NewPostgresRepo(pool, cfg.DB.Timeout),
		log:     log,
	}

	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("generating books", zap.Int("count", cli.Count), zap.Int64("seed", seed))

	created, err := s.seed(ctx, generate(rand.New(rand.NewSource(seed)), cli.Count, cli.MaxRatings), cli.Workers)
	if err != nil {
		return err
	}

	top, err := s.ratings.TopByAverage(ctx, rating.DefaultTopN, rating.DefaultMinAverage)
	if err != nil {
		return err
	}
	log.Info("seed complete", zap.Int("created", created), zap.Int("top", len(top)))
	return nil
}

type demoBook struct {
	book    book.Book
	ratings []int
}

var words = []string{
	"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
	"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
	"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
	"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
}

var (
	publishers = []string{"Penguin", "HarperCollins", "Oxford", "Cambridge", "MIT Press", "Springer", "Wiley", "Elsevier"}
	authors    = []string{"Mark Twain", "Ursula K. Le Guin", "Octavia Butler", "Italo Calvino", "Toni Morrison", "Stanislaw Lem"}
)

func generate(rng *rand.Rand, count, maxRatings int) []demoBook {
	pick := func(xs []string) string { return xs[rng.Intn(len(xs))] }

	return lo.Times(count, func(i int) demoBook {
		year := 1950 + rng.Intn(75)
		ratings := make([]int, rng.Intn(maxRatings+1))
		for j := range ratings {
			ratings[j] = rating.MinValue + rng.Intn(rating.MaxValue)
		}
		return demoBook{
			book: book.Book{
				ISBN:          fmt.Sprintf("979%010d", i+1),
				Title:         fmt.Sprintf("The %s of %s", pick(words), pick(words)),
				Genre:         pick(book.Genres),
				Authors:       pick(authors),
				Publisher:     pick(publishers),
				PublishedDate: fmt.Sprintf("%d", year),
			},
			ratings: ratings,
		}
	})
}

type seeder struct {
	books   book.Repository
	ratings rating.Repository
	log     *zap.Logger
}

// seed writes every book with its aggregate and ratings. Books whose ISBN
// already exists are skipped so the command can be re-run.
func (s *seeder) seed(ctx context.Context, demo []demoBook, workers int) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	results := make([]bool, len(demo))
	for i, d := range demo {
		g.Go(func() error {
			id, err := s.books.Insert(gctx, d.book)
			if errors.Is(err, book.ErrDuplicateISBN) {
				s.log.Debug("isbn already present, skipping", zap.String("isbn", d.book.ISBN))
				return nil
			}
			if err != nil {
				return fmt.Errorf("insert %s: %w", d.book.ISBN, err)
			}
			if err := s.ratings.Initialize(gctx, id, d.book.Title); err != nil {
				if derr := s.books.Delete(context.WithoutCancel(gctx), id); derr != nil {
					s.log.Error("book left without rating aggregate",
						zap.String("book_id", id), zap.NamedError("cause", err), zap.Error(derr))
					return fmt.Errorf("initialize ratings for %s: %w (rollback failed: %v)", id, err, derr)
				}
				return fmt.Errorf("initialize ratings for %s: %w", id, err)
			}
			for _, v := range d.ratings {
				if _, err := s.ratings.ApplyRating(gctx, id, v); err != nil {
					return fmt.Errorf("rate %s: %w", id, err)
				}
			}
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(lo.Filter(results, func(ok bool, _ int) bool { return ok })), nil
}
