package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Route labels are chi patterns ("/uploads/{key}"), never raw paths, so
// per-upload keys do not create series.
var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trashd",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trashd",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency. Classification and advice calls dominate.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"route", "method"})

	httpResponseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trashd",
		Subsystem: "http",
		Name:      "response_bytes",
		Help:      "HTTP response body size; uploads served back dominate.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"route"})

	httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trashd",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "HTTP requests being served.",
	}, []string{"method"})

	backpressureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trashd",
		Subsystem: "http",
		Name:      "backpressure_total",
		Help:      "Requests rejected with 429 because no classifier session freed up in time.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpResponseBytes, httpInflight, backpressureTotal)
}

// MetricsMiddleware records request count, latency and response size. The
// route is resolved after the handler ran, once chi has matched it.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inflight := httpInflight.WithLabelValues(r.Method)
		inflight.Inc()
		defer inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routeLabel(r)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		httpResponseBytes.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
	})
}

// routeLabel returns the matched chi pattern. Unmatched requests share one
// label.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// IncrementBackpressure counts a 429 answer.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}
