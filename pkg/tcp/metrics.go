package tcp

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服务端指标，nil 接收者上的方法均为空操作
type Metrics struct {
	accepted prometheus.Counter
	sessions prometheus.Gauge
	errors   *prometheus.CounterVec
	received prometheus.Counter
	sent     prometheus.Counter
}

// NewMetrics 创建并注册服务端指标，reg 为 nil 时只创建不注册
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "accepted_total",
			Help:      "Total number of accepted connections.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "sessions",
			Help:      "Number of registered sessions.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "errors_total",
			Help:      "Total number of reported errors by category.",
		}, []string{"category"}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "received_bytes_total",
			Help:      "Total number of bytes received by sessions.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "sent_bytes_total",
			Help:      "Total number of bytes sent by sessions.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.accepted, m.sessions, m.errors, m.received, m.sent} {
			if err := reg.Register(c); err != nil {
				return nil, errors.Wrap(err, "register tcp metrics")
			}
		}
	}
	return m, nil
}

func (m *Metrics) incAccepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

func (m *Metrics) setSessions(n int) {
	if m != nil {
		m.sessions.Set(float64(n))
	}
}

func (m *Metrics) incError(category string) {
	if m != nil {
		m.errors.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) addReceived(n int) {
	if m != nil {
		m.received.Add(float64(n))
	}
}

func (m *Metrics) addSent(n int) {
	if m != nil {
		m.sent.Add(float64(n))
	}
}
