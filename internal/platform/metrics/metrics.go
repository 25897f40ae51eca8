package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the catalog.
type Metrics struct {
	BooksCreated     prometheus.Counter
	BooksDeleted     prometheus.Counter
	RatingsSubmitted prometheus.Counter
	LookupFailures   *prometheus.CounterVec
	Compensations    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BooksCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bookcatalog_books_created_total",
			Help: "Total number of books created",
		}),
		BooksDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "bookcatalog_books_deleted_total",
			Help: "Total number of book deletions",
		}),
		RatingsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "bookcatalog_ratings_submitted_total",
			Help: "Total number of accepted rating values",
		}),
		LookupFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcatalog_metadata_lookup_failures_total",
			Help: "Metadata lookups that prevented a book from being created",
		}, []string{"reason"}),
		Compensations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcatalog_create_compensations_total",
			Help: "Book deletions issued after a failed rating initialization",
		}, []string{"outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookcatalog_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
