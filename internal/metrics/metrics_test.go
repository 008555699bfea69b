package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.EventReceived()
		m.EventMatched()
		m.EventDuplicate()
		m.StreamError("read")
		m.Reconnect()
		m.RunFinished(ResultOK)
		m.RunStarted()()
		m.ObserveLookup("supply", time.Now(), nil)
		m.Dispatch(ResultError)
		m.SetBreakerState("coingecko", 2)
	})
	assert.NotNil(t, m.Handler())
}

func TestCounters(t *testing.T) {
	m := New()

	m.EventReceived()
	m.EventReceived()
	m.EventMatched()
	m.RunFinished(ResultSkipped)
	m.Dispatch(ResultOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsMatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(ResultSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues(ResultOK)))

	done := m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlightRuns))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightRuns))

	m.ObserveLookup("holders", time.Now(), errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LookupDuration))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.EventReceived()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "notifier_log_events_received_total 1")
}
