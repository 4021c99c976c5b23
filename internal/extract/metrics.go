package extract

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for the extraction pipeline.
type Metrics struct {
	registry       *prometheus.Registry
	passes         prometheus.Counter
	messages       prometheus.Counter
	payments       prometheus.Counter
	itemErrors     prometheus.Counter
	malformedDates prometheus.Counter
}

// NewMetrics builds collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fanharvest",
			Name:      "extraction_passes_total",
			Help:      "Completed extraction passes over a snapshot",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fanharvest",
			Name:      "messages_extracted_total",
			Help:      "Messages emitted across all passes",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fanharvest",
			Name:      "payments_extracted_total",
			Help:      "Payments emitted across all passes",
		}),
		itemErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fanharvest",
			Name:      "item_errors_total",
			Help:      "Per-item extraction failures that were skipped",
		}),
		malformedDates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fanharvest",
			Name:      "malformed_dates_total",
			Help:      "Timestamp fragments that failed to reconstruct",
		}),
	}
	registry.MustRegister(m.passes, m.messages, m.payments, m.itemErrors, m.malformedDates)
	return m
}

// Registry exposes the private registry for the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) incPass() {
	if m == nil {
		return
	}
	m.passes.Inc()
}

func (m *Metrics) addMessages(n int) {
	if m == nil {
		return
	}
	m.messages.Add(float64(n))
}

func (m *Metrics) addPayments(n int) {
	if m == nil {
		return
	}
	m.payments.Add(float64(n))
}

func (m *Metrics) incItemError() {
	if m == nil {
		return
	}
	m.itemErrors.Inc()
}

func (m *Metrics) incMalformedDate() {
	if m == nil {
		return
	}
	m.malformedDates.Inc()
}
