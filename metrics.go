package docan

import "github.com/prometheus/client_golang/prometheus"

// DispatcherMetrics is optional Prometheus instrumentation for a Server's
// receive loop: requests and negative responses counted per service, plus
// a running count of transport errors observed while receiving. Grounded
// on the exporter pack repo's hand-built collector shape (prometheus.Desc
// + counters keyed by connection labels), simplified to the stock
// CounterVec/Counter types since a dispatcher has no per-connection set to
// collect over, just one counter family per service byte.
type DispatcherMetrics struct {
	requests  *prometheus.CounterVec
	negatives *prometheus.CounterVec
	rxErrors  prometheus.Counter
}

// NewDispatcherMetrics builds and registers dispatcher counters against reg.
// Passing a fresh prometheus.NewRegistry() keeps docan's metrics out of the
// global default registry for embedders that run more than one Server.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	m := &DispatcherMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docan",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Requests received, by service ID.",
		}, []string{"service"}),
		negatives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docan",
			Subsystem: "server",
			Name:      "negative_responses_total",
			Help:      "Negative responses sent, by service ID and NRC.",
		}, []string{"service", "nrc"}),
		rxErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docan",
			Subsystem: "server",
			Name:      "rx_errors_total",
			Help:      "Transport errors observed on the receive loop.",
		}),
	}
	reg.MustRegister(m.requests, m.negatives, m.rxErrors)
	return m
}

func (m *DispatcherMetrics) observeRequest(service Service) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(service.String()).Inc()
}

func (m *DispatcherMetrics) observeNegative(service Service, code NRC) {
	if m == nil {
		return
	}
	m.negatives.WithLabelValues(service.String(), code.String()).Inc()
}

func (m *DispatcherMetrics) observeRxError() {
	if m == nil {
		return
	}
	m.rxErrors.Inc()
}
