// Package metrics holds the allocator's Prometheus registry and counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the allocator meters.
type Metrics struct {
	Registry          *prometheus.Registry
	DispatchTotal     *prometheus.CounterVec
	DispatchBytes     *prometheus.CounterVec
	NotificationTotal *prometheus.CounterVec
	CreditTotal       *prometheus.CounterVec
	APIRequestTotal   *prometheus.CounterVec
}

// NewMetrics creates a custom registry with the allocator metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	dispatchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coretime_dispatch_total",
		Help: "Outbound relay chain messages by call and handoff status.",
	}, []string{"call", "status"})

	dispatchBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coretime_dispatch_bytes_total",
		Help: "Encoded envelope bytes handed to the transport.",
	}, []string{"call"})

	notificationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coretime_notification_total",
		Help: "Inbox slot events by slot and event (notify, overwrite, check, empty).",
	}, []string{"slot", "event"})

	creditTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coretime_credit_redirect_total",
		Help: "Credit redirections by status.",
	}, []string{"status"})

	apiTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coretime_api_request_total",
		Help: "Request API calls by method and result.",
	}, []string{"method", "result"})

	reg.MustRegister(dispatchTotal, dispatchBytes, notificationTotal, creditTotal, apiTotal)

	return &Metrics{
		Registry:          reg,
		DispatchTotal:     dispatchTotal,
		DispatchBytes:     dispatchBytes,
		NotificationTotal: notificationTotal,
		CreditTotal:       creditTotal,
		APIRequestTotal:   apiTotal,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveDispatch counts one transport handoff. Safe on a nil receiver.
func (m *Metrics) ObserveDispatch(call, status string, bytes int) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(call, status).Inc()
	if bytes > 0 {
		m.DispatchBytes.WithLabelValues(call).Add(float64(bytes))
	}
}

// ObserveNotification counts one inbox slot event. Safe on a nil receiver.
func (m *Metrics) ObserveNotification(slot, event string) {
	if m == nil {
		return
	}
	m.NotificationTotal.WithLabelValues(slot, event).Inc()
}

// ObserveCredit counts one credit redirection. Safe on a nil receiver.
func (m *Metrics) ObserveCredit(status string) {
	if m == nil {
		return
	}
	m.CreditTotal.WithLabelValues(status).Inc()
}

// ObserveAPIRequest counts one request API call. Safe on a nil receiver.
func (m *Metrics) ObserveAPIRequest(method, result string) {
	if m == nil {
		return
	}
	m.APIRequestTotal.WithLabelValues(method, result).Inc()
}
