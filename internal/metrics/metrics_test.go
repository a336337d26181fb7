package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
)

func TestCountersAndGauges(t *testing.T) {
	m := New()
	m.PollTick("ok")
	m.PollTick("ok")
	m.PollTick("error")
	m.ObserveUpstream("historial", 20*time.Millisecond, nil)
	m.ObserveUpstream("historial", 20*time.Millisecond, errors.New("boom"))
	m.BreakerState("historial", gobreaker.StateOpen)
	m.Submission("report", "ok")
	m.Polling(true)

	if got := testutil.ToFloat64(m.pollTicks.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok ticks = %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamErrors.WithLabelValues("historial")); got != 1 {
		t.Fatalf("errors = %v", got)
	}
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("historial")); got != 2 {
		t.Fatalf("breaker = %v", got)
	}
	if got := testutil.ToFloat64(m.polling); got != 1 {
		t.Fatalf("polling = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PollTick("ok")
	m.ObserveUpstream("x", time.Second, nil)
	m.BreakerState("x", gobreaker.StateClosed)
	m.Submission("x", "y")
	m.Polling(false)
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.Submission("advisor", "no_answer")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `invernadero_submissions_total{kind="advisor",outcome="no_answer"} 1`) {
		t.Fatalf("series missing from exposition:\n%s", body)
	}
}
