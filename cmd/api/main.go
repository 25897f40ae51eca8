package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookcatalog/internal/book"
	"bookcatalog/internal/catalog"
	"bookcatalog/internal/metadata"
	"bookcatalog/internal/platform/config"
	"bookcatalog/internal/platform/fetch"
	"bookcatalog/internal/platform/googlebooks"
	"bookcatalog/internal/platform/logger"
	"bookcatalog/internal/platform/metrics"
	"bookcatalog/internal/platform/openlibrary"
	platformredis "bookcatalog/internal/platform/redis"
	"bookcatalog/internal/rating"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bookcatalog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.cleanup()

	checks := map[string]readyCheck{"books": stores.books.Ping}

	rdb, err := platformredis.New(ctx, cfg.Redis.URL)
	if err != nil {
		log.Warn("metadata cache disabled", zap.Error(err))
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		checks["redis"] = rdb.Health
	}

	svc := catalog.NewService(stores.books, stores.ratings, buildLookup(cfg, rdb, log),
		catalog.WithLogger(log),
		catalog.WithMetrics(m),
		catalog.WithLookupTimeout(cfg.Metadata.Timeout),
	)

	handler := newRouter(ctx, routerConfig{
		Service:            svc,
		Logger:             log,
		Metrics:            m,
		Gatherer:           registry,
		ReadyChecks:        checks,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		RateLimitRPS:       cfg.HTTP.RateLimitRPS,
		RateLimitBurst:     cfg.HTTP.RateLimitBurst,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		EnableHSTS:         cfg.HTTP.EnableHSTS,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second + cfg.Metadata.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("store", stores.kind),
			zap.String("metadata_provider", cfg.Metadata.Provider))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type storeSet struct {
	kind    string
	books   book.Repository
	ratings rating.Repository
	cleanup func()
}

// openStores uses Postgres when a DSN is configured and in-memory stores otherwise.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storeSet, error) {
	if cfg.DB.DSN == "" {
		log.Warn("DB_DSN not set, using in-memory stores")
		return &storeSet{
			kind:    "memory",
			books:   book.NewMemoryRepo(),
			ratings: rating.NewMemoryRepo(),
			cleanup: func() {},
		}, nil
	}

	pool, err := openDB(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	log.Info("database connection OK", zap.String("dsn", redactDSN(cfg.DB.DSN)))

	return &storeSet{
		kind:    "postgres",
		books:   book.NewPostgresRepo(pool, cfg.DB.Timeout),
		ratings: rating.NewPostgresRepo(pool, cfg.DB.Timeout),
		cleanup: pool.Close,
	}, nil
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", redactDSN(dsn), err)
	}
	return pool, nil
}

// buildLookup returns the configured provider, cached in redis when
// available, with concurrent lookups for one ISBN collapsed.
func buildLookup(cfg *config.Config, rdb *platformredis.Client, log *zap.Logger) metadata.Lookup {
	getter := fetch.NewGetter(cfg.Metadata.UserAgent, cfg.Metadata.RPS, cfg.Metadata.MaxRetries)

	var lookup metadata.Lookup
	switch cfg.Metadata.Provider {
	case config.ProviderOpenLibrary:
		lookup = openlibrary.NewClient(getter, cfg.Metadata.BaseURL)
	default:
		lookup = googlebooks.NewClient(getter, cfg.Metadata.BaseURL)
	}

	if rdb != nil {
		lookup = metadata.NewCache(rdb, lookup, cfg.Metadata.CacheTTL, log)
	}
	return metadata.NewDeduplicator(lookup, cfg.Metadata.Timeout)
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
