// Package metrics holds the Prometheus collectors exported by linkarr.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	LinksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkarr",
			Name:      "links_created_total",
			Help:      "Number of hard links created.",
		})
	LinkFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkarr",
			Name:      "link_failures_total",
			Help:      "Number of files or sources that could not be linked.",
		})
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "linkarr",
			Name:      "sessions_active",
			Help:      "Number of link sessions currently connected.",
		})
	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkarr",
			Name:      "sessions_total",
			Help:      "Number of link sessions that ended, by outcome.",
		},
		[]string{"outcome"})
)

// Register adds all collectors to the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(LinksCreated)
		prometheus.MustRegister(LinkFailures)
		prometheus.MustRegister(SessionsActive)
		prometheus.MustRegister(SessionsTotal)
	})
}
