package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larder-io/larder/internal/crud"
)

func TestFailures(t *testing.T) {
	m := New()
	foods := m.Failures("foods")

	foods.ObserveFailure(crud.FailureConstraintViolation)
	foods.ObserveFailure(crud.FailureConstraintViolation)
	m.Failures("tags").ObserveFailure(crud.FailureNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures.WithLabelValues("foods", "constraint_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("tags", "not_found")))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/v1/foods/{id}", http.MethodGet, "404", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/foods/{id}", "GET", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Failures("units").ObserveFailure(crud.FailureStorage)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `larder_crud_failures_total{kind="storage_error",resource="units"} 1`)
}
