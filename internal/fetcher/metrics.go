package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of one fetch invocation. Each Fetcher owns its
// own registry so results can be dumped for the node_exporter textfile
// collector after the process finishes its single run.
type Metrics struct {
	registry *prometheus.Registry

	ConnectAttempts  prometheus.Counter
	ConnectFailures  prometheus.Counter
	MessagesReceived prometheus.Counter
	MessagesDropped  prometheus.Counter
	WaitSeconds      prometheus.Gauge
	Success          prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "signedmsg_fetch_connect_attempts_total",
			Help: "Broker connection attempts made",
		}),
		ConnectFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "signedmsg_fetch_connect_failures_total",
			Help: "Broker connection attempts that failed",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "signedmsg_fetch_messages_received_total",
			Help: "Messages delivered to the subscription",
		}),
		MessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "signedmsg_fetch_dropped_messages_total",
			Help: "Messages ignored because one was already captured",
		}),
		WaitSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signedmsg_fetch_wait_seconds",
			Help: "Time spent waiting for the first message",
		}),
		Success: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signedmsg_fetch_success",
			Help: "1 if the last fetch wrote a message, 0 otherwise",
		}),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry())
}
