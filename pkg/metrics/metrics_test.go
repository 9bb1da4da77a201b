package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.ConnectionsAccepted.Inc()
	m.ConnectionsAccepted.Inc()
	m.QueueDepth.Set(7)
	m.RequestsTotal.WithLabelValues("success").Inc()

	if got := testutil.ToFloat64(m.ConnectionsAccepted); got != 2 {
		t.Errorf("connections_accepted_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.QueueDepth); got != 7 {
		t.Errorf("queue_depth = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("requests_total{outcome=success} = %v, want 1", got)
	}
}

func TestNewRegistryIsIsolated(t *testing.T) {
	a := NewRegistry(prometheus.NewRegistry())
	b := NewRegistry(prometheus.NewRegistry())

	a.ConnectionsAccepted.Inc()

	if got := testutil.ToFloat64(b.ConnectionsAccepted); got != 0 {
		t.Errorf("expected isolated registries, got %v", got)
	}
}
