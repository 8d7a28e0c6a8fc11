package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nurpe/energy-contracts/internal/model"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.GateRequired(model.CommodityGas)
	c.GateRequired(model.CommodityGas)
	c.TransitionCommitted(model.CommodityGas, model.StatusClosed)
	c.CommissionAssigned(model.CommodityGas, model.CommissionModeManual)
	c.PersistenceFailed("commit transition", true)

	if got := testutil.ToFloat64(c.gatesRequired.WithLabelValues("gas")); got != 2 {
		t.Fatalf("expected 2 gates, got %v", got)
	}
	if got := testutil.ToFloat64(c.transitions.WithLabelValues("gas", "closed")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(c.persistenceFailures.WithLabelValues("commit transition", "true")); got != 1 {
		t.Fatalf("expected 1 persistence failure, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RefreshObserved()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "energy_contracts_refresh_notifications_total 1") {
		t.Fatalf("metric missing from output:\n%s", rec.Body.String())
	}
}
