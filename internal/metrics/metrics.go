package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gateRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipsentry_gate_requests_total",
		Help: "Total number of requests evaluated by the IP gate",
	})
	gateDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipsentry_gate_denied_total",
		Help: "Total number of requests denied by the IP gate",
	})
	findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_findings_total",
		Help: "Total number of suspicious activity findings created, by rule",
	}, []string{"rule"})
	sweptRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_swept_rows_total",
		Help: "Total number of rows removed by the retention sweep, by table",
	}, []string{"table"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(gateRequestsTotal, gateDeniedTotal, findingsTotal, sweptRowsTotal)
}

// IncGateRequest increments the evaluated requests counter.
func IncGateRequest() { gateRequestsTotal.Inc() }

// IncGateDenied increments the denied requests counter.
func IncGateDenied() { gateDeniedTotal.Inc() }

// IncFinding increments the created findings counter for a rule.
func IncFinding(rule string) { findingsTotal.WithLabelValues(rule).Inc() }

// AddSweptRows records rows removed from a table by the retention sweep.
func AddSweptRows(table string, n int64) {
	sweptRowsTotal.WithLabelValues(table).Add(float64(n))
}
