package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics("bankbot_test")
	m.ObserveTurn("free_text", 3*time.Millisecond)
	m.ObserveTurn("free_text", time.Millisecond)
	m.ObserveIntent("check_balance")
	m.ObserveFallback("unknown")
	m.ObserveFlow("transfer", "submitted")
	m.ObserveReload(2, 40*time.Millisecond, nil)
	m.ObserveReload(0, 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Turns.WithLabelValues("free_text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Intents.WithLabelValues("check_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowEvents.WithLabelValues("transfer", "submitted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelGenSeq))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("error")))
}

func TestMetrics_TwoInstancesDoNotCollide(t *testing.T) {
	a := NewMetrics("bankbot")
	b := NewMetrics("bankbot")
	a.ObserveIntent("greet")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Intents.WithLabelValues("greet")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn("control", time.Millisecond)
		m.ObserveIntent("greet")
		m.ObserveFallback("unknown")
		m.ObserveFlow("kyc", "completed")
		m.ObserveReload(1, time.Second, nil)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("bankbot")
	m.ObserveIntent("greet")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `bankbot_intents_total{intent="greet"} 1`)
}
