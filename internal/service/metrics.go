package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"delegues-backend/internal/domain"
)

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	registrations  *prometheus.CounterVec
	confirmations  *prometheus.CounterVec
	storeFailures  *prometheus.CounterVec
	mails          *prometheus.CounterVec
	mailQueueDepth prometheus.Gauge
}

// NewMetrics creates the collectors on reg. A nil reg creates unregistered
// collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "delegues_registrations_total",
			Help: "registration submissions by result",
		}, []string{"result"}),
		confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "delegues_confirmations_total",
			Help: "confirmation link resolutions by outcome",
		}, []string{"outcome"}),
		storeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "delegues_store_failures_total",
			Help: "store errors by operation",
		}, []string{"operation"}),
		mails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "delegues_emails_total",
			Help: "confirmation emails by result",
		}, []string{"result"}),
		mailQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "delegues_email_queue_depth",
			Help: "number of emails waiting for a worker",
		}),
	}
}

func (m *Metrics) observeRegistration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) observeConfirmation(o domain.Outcome) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeStoreFailure(operation string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) observeMail(result string) {
	if m == nil {
		return
	}
	m.mails.WithLabelValues(result).Inc()
}

func (m *Metrics) setMailQueueDepth(n int) {
	if m == nil {
		return
	}
	m.mailQueueDepth.Set(float64(n))
}
