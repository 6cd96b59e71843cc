package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

func TestObserveSolve(t *testing.T) {
	m := New()
	out := &solver.Output{
		RosterID:        "r1",
		Status:          solver.StatusPartial,
		CoveragePercent: 87.5,
		Bottlenecks: []model.Bottleneck{
			{Reason: model.ReasonNoCapability},
			{Reason: model.ReasonNoCapability},
			{Reason: model.ReasonPairingConflict},
		},
	}

	m.ObserveSolve("greedy/gap", out, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.solveTotal.WithLabelValues("greedy/gap", "partial")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.bottlenecks.WithLabelValues("NO_CAPABILITY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bottlenecks.WithLabelValues("PAIRING_CONFLICT")))
	assert.Equal(t, 87.5, testutil.ToFloat64(m.lastCoverage.WithLabelValues("r1")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.solveDuration))
}

func TestRecordCacheLookupAndErrors(t *testing.T) {
	m := New()

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.ObserveSolveError("data_error")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solveErrors.WithLabelValues("data_error")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodPost, "/v1/solve", http.StatusOK, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="POST",path="/v1/solve",status="200"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	m.ObserveSolve("greedy/gap", &solver.Output{}, time.Second)
	m.ObserveSolveError("data_error")
	m.RecordCacheLookup(true)
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Second)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
