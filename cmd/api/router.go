package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bookcatalog/internal/catalog"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/metrics"
)

type readyCheck func(ctx context.Context) error

type routerConfig struct {
	Service     *catalog.Service
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	ReadyChecks map[string]readyCheck

	MaxBodyBytes       int64
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	EnableHSTS         bool
}

// newRouter wires the catalog routes, operational endpoints and the
// middleware chain. Background work stops when ctx is done.
func newRouter(ctx context.Context, cfg routerConfig) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", readyHandler(cfg.ReadyChecks))
	router.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	catalog.NewHTTPHandler(cfg.Service).RegisterRoutes(router)

	rateLimiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		rateLimiter.Middleware,
		httpx.AccessLogMiddleware(cfg.Logger, cfg.Metrics),
		httpx.RecoveryMiddleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
}

func readyHandler(checks map[string]readyCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				httpx.LoggerFrom(r).Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				http.Error(w, name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
