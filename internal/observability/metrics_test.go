package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func newTestCollector(t *testing.T) (*SimCollector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	return c, reg
}

func TestCollectorObservations(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ObserveControlRequest("status")
	c.ObserveControlRequest("status")
	c.ObserveControlRequest("pause")
	c.ObserveWorkerTick()
	c.SetTopologyCounts(5, 7)
	c.SetPaused(true)
	c.SetWorkerCount(5)

	if got := testutil.ToFloat64(c.ControlRequests.WithLabelValues("status")); got != 2 {
		t.Errorf("status requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ControlRequests.WithLabelValues("pause")); got != 1 {
		t.Errorf("pause requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.WorkerTicks); got != 1 {
		t.Errorf("worker ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.SimNodes); got != 5 {
		t.Errorf("sim_nodes = %v, want 5", got)
	}
	if got := testutil.ToFloat64(c.SimLinks); got != 7 {
		t.Errorf("sim_active_links = %v, want 7", got)
	}
	if got := testutil.ToFloat64(c.SimPaused); got != 1 {
		t.Errorf("sim_paused = %v, want 1", got)
	}

	c.SetPaused(false)
	if got := testutil.ToFloat64(c.SimPaused); got != 0 {
		t.Errorf("sim_paused after resume = %v, want 0", got)
	}
}

func TestCollectorRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector(first): %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector(second): %v", err)
	}

	// Both collectors share the underlying registered metrics.
	first.ObserveWorkerTick()
	second.ObserveWorkerTick()
	if got := testutil.ToFloat64(first.WorkerTicks); got != 2 {
		t.Errorf("worker ticks = %v, want 2 shared across collectors", got)
	}
}

func TestCollectorGather(t *testing.T) {
	c, reg := newTestCollector(t)
	c.ObserveControlRequest("links")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var requests *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "sim_control_requests_total" {
			requests = mf
		}
	}
	if requests == nil {
		t.Fatal("sim_control_requests_total not gathered")
	}
	if requests.GetType() != dto.MetricType_COUNTER {
		t.Errorf("type = %v, want counter", requests.GetType())
	}
	if len(requests.Metric) != 1 {
		t.Fatalf("gathered %d series, want 1", len(requests.Metric))
	}
	labels := requests.Metric[0].GetLabel()
	if len(labels) != 1 || labels[0].GetName() != "cmd" || labels[0].GetValue() != "links" {
		t.Errorf("labels = %v, want cmd=links", labels)
	}
}

func TestCollectorHandler(t *testing.T) {
	c, _ := newTestCollector(t)
	c.SetWorkerCount(3)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "sim_workers 3") {
		t.Errorf("exposition missing sim_workers gauge:\n%s", rr.Body.String())
	}
}
