// Package metrics exposes Prometheus collectors for the command server.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"i4.energy/across/remoteio/protocol"
)

const namespace = "remoteio"

// Metrics holds the process wide collectors and the registry they live in.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Connection lifecycle
	connections prometheus.Gauge
	accepted    prometheus.Counter
	rejected    prometheus.Counter

	// Command processing
	commands *prometheus.CounterVec
	failures *prometheus.CounterVec

	// Asynchronous traffic
	notifications *prometheus.CounterVec
	uartLines     *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, in a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections",
			Help:      "Number of active client connections",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted client connections",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_rejected_total",
			Help:      "Total number of connections refused because every slot was taken",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Total number of command lines handled, by service id and result",
		}, []string{"service", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "errors_total",
			Help:      "Total number of error responses, by error code",
		}, []string{"code"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "notifications_total",
			Help:      "Total number of input change notifications, by delivery result",
		}, []string{"result"}),
		uartLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uart",
			Name:      "lines_total",
			Help:      "Total number of lines received per UART channel",
		}, []string{"channel"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections,
		m.accepted,
		m.rejected,
		m.commands,
		m.failures,
		m.notifications,
		m.uartLines,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.connections.Inc()
}

// ConnectionClosed records the end of a connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// ConnectionRejected records a connection refused for lack of a free slot.
func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

// CommandHandled records one command line. id is zero when the line failed
// to parse. A non-nil err is expected to carry a protocol.Code.
func (m *Metrics) CommandHandled(id protocol.ServiceID, err error) {
	if m == nil {
		return
	}
	service := strconv.Itoa(int(id))
	if err == nil {
		m.commands.WithLabelValues(service, "ok").Inc()
		return
	}
	m.commands.WithLabelValues(service, "error").Inc()

	code := protocol.CodeInvalidCommandParameter
	errors.As(err, &code)
	m.failures.WithLabelValues(strconv.Itoa(int(code))).Inc()
}

// NotificationSent records an input change queued for a client.
func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("sent").Inc()
}

// NotificationDropped records an input change lost to a full send queue.
func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("dropped").Inc()
}

// UARTLine records a line received on channel ch.
func (m *Metrics) UARTLine(ch int) {
	if m == nil {
		return
	}
	m.uartLines.WithLabelValues(strconv.Itoa(ch)).Inc()
}
