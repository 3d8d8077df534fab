package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTurn(t *testing.T) {
	m := New()

	m.RecordTurn("openai", "ok", 2*time.Second, 300*time.Millisecond, 12)
	m.RecordTurn("openai", "error", time.Second, 0, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("openai", "error")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.TokensStreamed.WithLabelValues("openai")))
}

func TestSessionGauge(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
}

func TestRecordFrame_EmptyTypeCountsAsContent(t *testing.T) {
	m := New()
	m.RecordFrame("")
	m.RecordFrame("history")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("content")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("history")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFrame("x")
		m.RecordTurn("p", "ok", time.Second, time.Second, 1)
		m.RecordTitle("ok")
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.SessionOpened()
		m.SessionClosed()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordTitle("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `neuralizard_titles_total{outcome="ok"} 1`)
}
