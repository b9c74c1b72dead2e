package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts order placement outcomes and fulfilment transitions.
type OrderMetrics struct {
	created  *prometheus.CounterVec
	failures *prometheus.CounterVec
	packed   prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders placed, by payment mode.",
	}, []string{"payment_mode"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_failures_total",
		Help:      "Order placements that were rejected or rolled back, by error code.",
	}, []string{"code"})
	packed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_packed_total",
		Help:      "Orders moved to packed.",
	})
	reg.MustRegister(created, failures, packed)
	return &OrderMetrics{created: created, failures: failures, packed: packed}
}

func (m *OrderMetrics) IncCreated(paymentMode string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMode)).Inc()
}

func (m *OrderMetrics) IncFailure(code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *OrderMetrics) IncPacked() {
	if m == nil || m.packed == nil {
		return
	}
	m.packed.Inc()
}
