package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

func TestRecorder_TracksInstalledAndStartDuration(t *testing.T) {
	r := NewRecorder()
	clock := time.Unix(100, 0)
	r.now = func() time.Time { return clock }

	name := servicecontainer.TypedServiceName("recorder-test", "a")
	before := testutil.ToFloat64(ServicesInstalled)

	r.Observe(servicecontainer.Event{Type: servicecontainer.EventInstalled, Service: name, Instance: "i1"})
	if got := testutil.ToFloat64(ServicesInstalled); got != before+1 {
		t.Errorf("services_installed = %v, want %v", got, before+1)
	}

	clock = clock.Add(2 * time.Second)
	r.Observe(servicecontainer.Event{Type: servicecontainer.EventStarted, Service: name, Instance: "i1"})
	if n := testutil.CollectAndCount(StartDuration, "servicecontainer_service_start_duration_seconds"); n == 0 {
		t.Error("expected a start duration observation")
	}

	r.Observe(servicecontainer.Event{Type: servicecontainer.EventRemoved, Service: name, Instance: "i1"})
	if got := testutil.ToFloat64(ServicesInstalled); got != before {
		t.Errorf("services_installed = %v, want %v after removal", got, before)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
}

func TestRecorder_CountsStartFailures(t *testing.T) {
	r := NewRecorder()
	name := servicecontainer.TypedServiceName("failure-test", "a")

	r.Observe(servicecontainer.Event{Type: servicecontainer.EventStartFailed, Service: name, Instance: "i2"})
	if got := testutil.ToFloat64(StartFailuresTotal.WithLabelValues("failure-test")); got != 1 {
		t.Errorf("start failures = %v, want 1", got)
	}
}

func TestCollector_SetsProviderStatus(t *testing.T) {
	c := NewCollector(time.Hour)
	c.Register("healthy", ProviderFunc(func(context.Context) error { return nil }))
	c.Register("broken", ProviderFunc(func(context.Context) error { return errors.New("down") }))

	c.Start(context.Background())
	defer c.Stop()

	if got := testutil.ToFloat64(CollectorStatus.WithLabelValues("healthy")); got != 1 {
		t.Errorf("healthy status = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CollectorStatus.WithLabelValues("broken")); got != 0 {
		t.Errorf("broken status = %v, want 0", got)
	}
}

func TestRecordReconcile(t *testing.T) {
	ok := testutil.ToFloat64(ManifestReconcilesTotal.WithLabelValues("ok"))
	RecordReconcile(nil)
	if got := testutil.ToFloat64(ManifestReconcilesTotal.WithLabelValues("ok")); got != ok+1 {
		t.Errorf("ok reconciles = %v, want %v", got, ok+1)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	RecordRestart("service/handler-test")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "servicecontainer_service_restarts_total") {
		t.Error("restart counter missing from /metrics output")
	}
}
