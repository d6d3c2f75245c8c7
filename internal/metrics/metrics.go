// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smp_registrations_total",
			Help: "Account registration attempts.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smp_logins_total",
			Help: "Login attempts.",
		},
		[]string{"result"},
	)

	PairingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smp_pairings_total",
			Help: "Pairing code consumption attempts by admins.",
		},
		[]string{"result"},
	)

	ContentPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smp_content_polls_total",
			Help: "Content polls from paired devices.",
		},
		[]string{"result"},
	)

	SweptOfflineTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smp_liveness_swept_offline_total",
			Help: "Players flipped to offline by the liveness sweep.",
		},
	)
)

var registerOnce sync.Once

// MustRegister registers every collector with the default registry.  Safe to
// call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			RegistrationsTotal,
			LoginsTotal,
			PairingsTotal,
			ContentPollsTotal,
			SweptOfflineTotal,
		)
	})
}
