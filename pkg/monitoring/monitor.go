package monitoring

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"credlyse_backend/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	RateLimitedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests denied by a rate limit policy",
		},
		[]string{"policy"},
	)

	BatchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Batch analysis items by outcome",
		},
		[]string{"outcome"},
	)

	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Graded quiz submissions by result",
		},
		[]string{"result"},
	)

	CertificatesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "certificates_issued_total",
			Help: "Newly issued certificates",
		},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_published_total",
			Help: "Events pushed to websocket clients by type",
		},
		[]string{"type"},
	)

	EventConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Open websocket event connections",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			RateLimitedRequests,
			BatchItems,
			QuizSubmissions,
			CertificatesIssued,
			EventsPublished,
			EventConnections,
		)
	})
}

// RegisterCache exposes a named cache's counters. Registering the same name
// twice is a no-op.
func RegisterCache(name string, stats func() cache.Stats) error {
	labels := prometheus.Labels{"cache": name}
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "cache_hits_total",
			Help:        "Cache lookups that returned a live entry",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "cache_misses_total",
			Help:        "Cache lookups that found nothing or an expired entry",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "cache_entries",
			Help:        "Entries currently held",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Size) }),
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

func RecordBatch(processed, failed, skipped int) {
	BatchItems.WithLabelValues("processed").Add(float64(processed))
	BatchItems.WithLabelValues("failed").Add(float64(failed))
	BatchItems.WithLabelValues("skipped").Add(float64(skipped))
}

func RecordQuiz(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	QuizSubmissions.WithLabelValues(result).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
