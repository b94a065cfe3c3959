package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics tracks gateway traffic outcomes.
type PaymentMetrics struct {
	ipnResponses *prometheus.CounterVec
	urlsBuilt    prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	ipnResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_ipn_responses_total",
		Help: "IPN callbacks answered, labelled by response code.",
	}, []string{"rsp_code"})
	urlsBuilt := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_urls_built_total",
		Help: "Gateway payment URLs generated at checkout.",
	})
	reg.MustRegister(ipnResponses, urlsBuilt)
	return &PaymentMetrics{
		ipnResponses: ipnResponses,
		urlsBuilt:    urlsBuilt,
	}
}

// IncIPNResponse increments the counter for the given gateway response code.
func (p *PaymentMetrics) IncIPNResponse(rspCode string) {
	if p == nil || p.ipnResponses == nil {
		return
	}
	p.ipnResponses.WithLabelValues(normalizeLabel(rspCode)).Inc()
}

// IncURLBuilt increments the payment URL counter.
func (p *PaymentMetrics) IncURLBuilt() {
	if p == nil || p.urlsBuilt == nil {
		return
	}
	p.urlsBuilt.Inc()
}
