// Package metrics expone contadores Prometheus del núcleo transaccional.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/filing"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ idempotency.Recorder = (*Registry)(nil)
	_ numbering.Recorder   = (*Registry)(nil)
	_ billing.Recorder     = (*Registry)(nil)
	_ filing.Recorder      = (*Registry)(nil)
)

// Registry registro propio (no el global) para que las pruebas puedan crear varios.
type Registry struct {
	reg         *prometheus.Registry
	idempotency *prometheus.CounterVec
	sagas       *prometheus.CounterVec
	remaining   *prometheus.GaugeVec
	allocated   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

// New crea y registra los colectores.
func New(namespace string) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		idempotency: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_requests_total",
			Help:      "Solicitudes mutantes por operación y resultado del gate.",
		}, []string{"operation", "result"}),
		sagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_results_total",
			Help:      "Resultados del orquestador por operación.",
		}, []string{"operation", "result"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "numbering_remaining",
			Help:      "Números disponibles en el rango activo.",
		}, []string{"tenant_id"}),
		allocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbering_allocated_total",
			Help:      "Números de factura asignados.",
		}, []string{"tenant_id"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filing_transitions_total",
			Help:      "Cambios de estado de documentos DIAN.",
		}, []string{"from", "to"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filing_retries_total",
			Help:      "Reintentos de documentos DIAN por estado.",
		}, []string{"status", "exhausted"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.idempotency, r.sagas, r.remaining, r.allocated, r.transitions, r.retries,
	)
	return r
}

// Handler endpoint /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer acceso a las métricas recolectadas (pruebas).
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) IdempotencyResult(operation, result string) {
	r.idempotency.WithLabelValues(operation, result).Inc()
}

func (r *Registry) SagaResult(operation, result string) {
	r.sagas.WithLabelValues(operation, result).Inc()
}

func (r *Registry) NumberAllocated(tenantID string, remaining int64) {
	r.allocated.WithLabelValues(tenantID).Inc()
	r.remaining.WithLabelValues(tenantID).Set(float64(remaining))
}

func (r *Registry) FilingTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Registry) FilingRetry(status string, exhausted bool) {
	r.retries.WithLabelValues(status, strconv.FormatBool(exhausted)).Inc()
}
