package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCheckoutMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncSubmission("wallet", "redirected")
	m.IncSubmission("wallet", "redirected")
	m.IncSubmission("cod", "done")
	m.IncVerification("success")

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("wallet", "redirected")); got != 2 {
		t.Fatalf("wallet redirected = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.verifications.WithLabelValues("success")); got != 1 {
		t.Fatalf("verification success = %v, want 1", got)
	}
}

func TestNilSafeWithoutRegistry(t *testing.T) {
	var c *CheckoutMetrics
	c.IncSubmission("cod", "done")

	empty := NewCheckoutMetrics(nil)
	empty.IncVerification("failed")

	var s *SweepJobMetrics
	s.ObserveDuration("stale-orders", time.Second)
	s.IncSuccess("stale-orders")
	s.IncFailure("stale-orders")
	s.AddCanceled(3)
}
