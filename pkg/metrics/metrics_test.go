package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAudit(t *testing.T) {
	m := New()
	m.ObserveAudit("web", "ok", map[string]int{"critical": 1, "minor": 3}, 2*time.Second)
	m.ObserveAudit("web", "failed", nil, time.Second)

	if got := testutil.ToFloat64(m.AuditsTotal.WithLabelValues("web", "ok")); got != 1 {
		t.Errorf("audits_total{web,ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AuditsTotal.WithLabelValues("web", "failed")); got != 1 {
		t.Errorf("audits_total{web,failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ViolationsTotal.WithLabelValues("minor")); got != 3 {
		t.Errorf("violations_total{minor} = %v, want 3", got)
	}
}

func TestPoolObserver(t *testing.T) {
	m := New()
	o := m.PoolObserver()

	o.ContextAcquired(10 * time.Millisecond)
	o.ContextAcquired(20 * time.Millisecond)
	o.ContextReleased()

	if got := testutil.ToFloat64(m.ContextsInUse); got != 1 {
		t.Errorf("browser_contexts_in_use = %v, want 1", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.AuditsTotal.WithLabelValues("pdf", "ok").Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if rr.Code != 200 {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "accesslens_audits_total") {
		t.Error("exposition output missing accesslens_audits_total")
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.AuditsTotal.WithLabelValues("web", "ok").Inc()
	if got := testutil.ToFloat64(b.AuditsTotal.WithLabelValues("web", "ok")); got != 0 {
		t.Errorf("second registry sees %v, want 0", got)
	}
}
