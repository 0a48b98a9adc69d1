package ai

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts AI route outcomes.
type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics registers the AI counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribeline_ai_requests_total",
			Help: "AI route requests by route and response status.",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.requests)
	return m
}

func (m *Metrics) observe(route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
