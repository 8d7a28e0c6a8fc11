// Package metrics exposes Prometheus counters for the contract lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nurpe/energy-contracts/internal/model"
)

const namespace = "energy_contracts"

type Collector struct {
	registry *prometheus.Registry

	contractsCreated    *prometheus.CounterVec
	duplicatesRejected  *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	gatesRequired       *prometheus.CounterVec
	gatesResolved       *prometheus.CounterVec
	pendingAbandoned    prometheus.Counter
	persistenceFailures *prometheus.CounterVec
	refreshNotified     prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		contractsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contracts_created_total",
			Help:      "Contracts created, by commodity.",
		}, []string{"commodity"}),
		duplicatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_rejected_total",
			Help:      "Contract creations rejected because the supply point already exists.",
		}, []string{"commodity"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_committed_total",
			Help:      "Committed status/procedure changes, by target status.",
		}, []string{"commodity", "status"}),
		gatesRequired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_gates_required_total",
			Help:      "Transitions suspended until a commission is assigned.",
		}, []string{"commodity"}),
		gatesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_assignments_total",
			Help:      "Commission assignments stored, by commodity and mode.",
		}, []string{"commodity", "mode"}),
		pendingAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_transitions_abandoned_total",
			Help:      "Suspended transitions discarded by the caller or expired.",
		}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Storage steps that failed, by operation.",
		}, []string{"op", "retryable"}),
		refreshNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_notifications_total",
			Help:      "Refresh notifications observed.",
		}),
	}
	registry.MustRegister(
		c.contractsCreated,
		c.duplicatesRejected,
		c.transitions,
		c.gatesRequired,
		c.gatesResolved,
		c.pendingAbandoned,
		c.persistenceFailures,
		c.refreshNotified,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ContractCreated(commodity model.Commodity) {
	c.contractsCreated.WithLabelValues(string(commodity)).Inc()
}

func (c *Collector) DuplicateRejected(commodity model.Commodity) {
	c.duplicatesRejected.WithLabelValues(string(commodity)).Inc()
}

func (c *Collector) TransitionCommitted(commodity model.Commodity, status model.Status) {
	c.transitions.WithLabelValues(string(commodity), string(status)).Inc()
}

func (c *Collector) GateRequired(commodity model.Commodity) {
	c.gatesRequired.WithLabelValues(string(commodity)).Inc()
}

func (c *Collector) CommissionAssigned(commodity model.Commodity, mode model.CommissionMode) {
	c.gatesResolved.WithLabelValues(string(commodity), string(mode)).Inc()
}

func (c *Collector) PendingAbandoned() {
	c.pendingAbandoned.Inc()
}

func (c *Collector) PersistenceFailed(op string, retryable bool) {
	label := "false"
	if retryable {
		label = "true"
	}
	c.persistenceFailures.WithLabelValues(op, label).Inc()
}

// RefreshObserved is meant to be registered as a refresh.Notifier subscriber.
func (c *Collector) RefreshObserved() {
	c.refreshNotified.Inc()
}
