package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByMatchedPattern(t *testing.T) {
	// Arrange
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := Middleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "/api/products/{id}"))

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/def", nil))

	// Assert
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "/api/products/{id}"))
	assert.Equal(t, before+2, after)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	// Arrange
	handler := Middleware(http.NewServeMux())
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "unmatched"))

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	// Assert
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "unmatched")))
}

func TestMiddleware_PreservesFlusher(t *testing.T) {
	// Arrange
	var flushed bool
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushed = w.(http.Flusher)
	}))

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cart/events", nil))

	// Assert
	assert.True(t, flushed)
}

func TestDomainCounters(t *testing.T) {

	t.Run("cart mutations by result", func(t *testing.T) {
		// Arrange
		okBefore := testutil.ToFloat64(cartMutationsTotal.WithLabelValues("add", "success"))
		errBefore := testutil.ToFloat64(cartMutationsTotal.WithLabelValues("add", "error"))

		// Act
		RecordCartMutation("add", nil)
		RecordCartMutation("add", errors.New("write failed"))

		// Assert
		assert.Equal(t, okBefore+1, testutil.ToFloat64(cartMutationsTotal.WithLabelValues("add", "success")))
		assert.Equal(t, errBefore+1, testutil.ToFloat64(cartMutationsTotal.WithLabelValues("add", "error")))
	})

	t.Run("session gauge", func(t *testing.T) {
		// Arrange
		before := testutil.ToFloat64(activeSessions)

		// Act
		SessionOpened()
		SessionOpened()
		SessionClosed()

		// Assert
		assert.Equal(t, before+1, testutil.ToFloat64(activeSessions))
		SessionClosed()
	})

	t.Run("admin logins by outcome", func(t *testing.T) {
		// Arrange
		before := testutil.ToFloat64(adminLoginsTotal.WithLabelValues("limited"))

		// Act
		RecordAdminLogin("limited")

		// Assert
		assert.Equal(t, before+1, testutil.ToFloat64(adminLoginsTotal.WithLabelValues("limited")))
	})
}
