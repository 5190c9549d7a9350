package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the billing core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	fiscalErrors     *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	pagamentosTotal  *prometheus.CounterVec
	notasTotal       *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	valorRecebido    prometheus.Counter
	storeCollections *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cobranca_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		fiscalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_fiscal_errors_total",
				Help: "Total errors from the fiscal authorizer.",
			},
			[]string{"provider"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		pagamentosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_pagamentos_total",
				Help: "Payments registered by method.",
			},
			[]string{"forma"},
		),
		notasTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_notas_emitidas_total",
				Help: "Notas fiscais issued by tax regime.",
			},
			[]string{"regime"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobranca_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		valorRecebido: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cobranca_valor_recebido_total",
				Help: "Gross amount received across all payments, in BRL.",
			},
		),
		storeCollections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cobranca_store_records",
				Help: "Records per store collection.",
			},
			[]string{"collection"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrFiscalError increments the fiscal authorizer error counter.
func (m *Metrics) IncrFiscalError(provider string) {
	m.fiscalErrors.WithLabelValues(provider).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordPagamento counts a registered payment and its gross amount.
func (m *Metrics) RecordPagamento(forma string, valor float64) {
	m.pagamentosTotal.WithLabelValues(forma).Inc()
	m.valorRecebido.Add(valor)
}

// RecordNotaEmitida counts an issued nota fiscal by regime.
func (m *Metrics) RecordNotaEmitida(regime string) {
	m.notasTotal.WithLabelValues(regime).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// SetStoreRecords publishes the record count of a collection.
func (m *Metrics) SetStoreRecords(collection string, count int) {
	m.storeCollections.WithLabelValues(collection).Set(float64(count))
}

// Snapshot returns the cumulative counters as a readable summary for the
// GET /v1/metrics/resumo endpoint.
func (m *Metrics) Snapshot() *domain.MetricasServico {
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "clientes")
	cacheMisses := getCounterValue(m.cacheMisses, "clientes")

	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var pagamentos float64
	for _, info := range domain.FormasPagamento() {
		pagamentos += getCounterValue(m.pagamentosTotal, string(info.Value))
	}
	var notas float64
	for _, regime := range domain.RegimesTributarios() {
		notas += getCounterValue(m.notasTotal, string(regime.Value))
	}

	return &domain.MetricasServico{
		TotalRequisicoes:      int64(totalRequests),
		TaxaErro:              errorRate,
		PagamentosRegistrados: int64(pagamentos),
		NotasEmitidas:         int64(notas),
		ErrosFiscais:          int64(getCounterValue(m.fiscalErrors, "simulador") + getCounterValue(m.fiscalErrors, "gateway")),
		CacheHitRate:          cacheHitRate,
		Periodo:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
