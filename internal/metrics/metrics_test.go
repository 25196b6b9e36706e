package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Update("business_message")
	m.Update("business_message")
	m.ShadowEvents(EventDeleted, 3)
	m.ShadowEvents(EventDeleted, 0)
	m.Purged(5)
	m.Purged(-1)

	if got := testutil.ToFloat64(m.updates.WithLabelValues("business_message")); got != 2 {
		t.Errorf("updates = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.shadowEvents.WithLabelValues(EventDeleted)); got != 3 {
		t.Errorf("deleted = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.purged); got != 5 {
		t.Errorf("purged = %v, want 5", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Update("message")
	m.ShadowEvent(EventCaptured)
	m.NotifyFailed("text")
	m.ResolveFailed()
	m.Panic()
	m.Purged(1)
	m.ObserveHandle("message", 0.1)
	if m.Registry() != nil {
		t.Error("nil Metrics returned a registry")
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.ShadowEvent(EventCaptured)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `shadowbot_shadow_events_total{event="captured"} 1`) {
		t.Errorf("exposition missing shadow event counter:\n%s", body)
	}
}
