package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"code", "method", "path"},
	)
	httpRequestsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current Number of HTTP requests being processed.",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Number of live storefront sessions.",
		},
	)

	activeCartSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_subscriptions",
			Help: "Number of live cart line-item subscriptions.",
		},
	)

	cartMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	rateFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_exchange_rate_fetches_total",
			Help: "Exchange rate fetches by result.",
		},
		[]string{"result"},
	)

	adminLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_admin_login_attempts_total",
			Help: "Admin login attempts by result.",
		},
		[]string{"result"},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

func CartSubscriptionStarted() { activeCartSubscriptions.Inc() }

func CartSubscriptionStopped() { activeCartSubscriptions.Dec() }

func RecordCartMutation(operation string, err error) {
	cartMutationsTotal.WithLabelValues(operation, result(err)).Inc()
}

func RecordRateFetch(err error) {
	rateFetchesTotal.WithLabelValues(result(err)).Inc()
}

// RecordAdminLogin takes one of "success", "invalid", "limited" or "error".
func RecordAdminLogin(outcome string) {
	adminLoginsTotal.WithLabelValues(outcome).Inc()
}

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

// wrapper around http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (cart events) working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routeLabel prefers the pattern the mux matched, which is only set when
// Middleware wraps the ServeMux directly. Unmatched requests share one label.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		if _, path, ok := strings.Cut(r.Pattern, " "); ok {
			return path
		}
		return r.Pattern
	}

	return "unmatched"
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()
		httpRequestsInFlight.Inc()

		rw := newResponseWriter(w)

		defer func() {

			duration := time.Since(start)
			statusCodeStr := strconv.Itoa(rw.statusCode)
			pathPattern := routeLabel(r)

			httpRequestsTotal.WithLabelValues(statusCodeStr, r.Method, pathPattern).Inc()
			httpRequestsDuration.WithLabelValues(r.Method, pathPattern).Observe(duration.Seconds())
			httpRequestsInFlight.Dec()

		}()

		next.ServeHTTP(rw, r)

	})
}

// http.Handler for the Prometheus /metrics endpoint
func Handler() http.Handler {

	return promhttp.Handler()
}
