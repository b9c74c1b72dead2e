package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	PaymentResultVerified  = "verified"
	PaymentResultDuplicate = "duplicate"
	PaymentResultMismatch  = "signature_mismatch"
	PaymentResultRejected  = "rejected"
)

// PaymentMetrics counts payment verification attempts by result.
type PaymentMetrics struct {
	verifications *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_verifications_total",
		Help:      "Payment verification attempts, by result.",
	}, []string{"result"})
	reg.MustRegister(verifications)
	return &PaymentMetrics{verifications: verifications}
}

func (m *PaymentMetrics) IncVerification(result string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(result)).Inc()
}
