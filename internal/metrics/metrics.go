// Package metrics exposes Prometheus instruments for database connection attempts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Connections records connection attempts made through database.Open. It
// satisfies database.Observer.
type Connections struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewConnections registers the connection instruments on reg.
func NewConnections(reg prometheus.Registerer) *Connections {
	factory := promauto.With(reg)
	return &Connections{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_db_connect_attempts_total",
			Help: "The total number of database connection attempts by driver and result",
		}, []string{"driver", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_db_connect_duration_seconds",
			Help:    "Time to open and ping a database handle",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		}, []string{"driver"}),
	}
}

// ObserveConnect records one attempt. A nil receiver is a no-op.
func (c *Connections) ObserveConnect(driver string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	c.attempts.WithLabelValues(driver, result).Inc()
	c.duration.WithLabelValues(driver).Observe(elapsed.Seconds())
}
