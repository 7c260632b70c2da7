// Package metrics holds the Prometheus collectors of the locker controller.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lockers"

// Metrics is a private registry plus the controller's collectors.
type Metrics struct {
	registry *prometheus.Registry

	actuations    *prometheus.CounterVec
	actuationTime *prometheus.HistogramVec
	codeAttempts  *prometheus.CounterVec
	sensorErrors  *prometheus.CounterVec
	keypadErrors  prometheus.Counter
	commits       *prometheus.CounterVec
	snapshots     *prometheus.CounterVec
	occupiedGauge prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Servo actuations by locker, direction and outcome.",
		}, []string{"locker", "direction", "outcome"}),
		actuationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actuation_seconds",
			Help:      "Time from servo command to end of settle.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 2.5, 3, 5},
		}, []string{"direction"}),
		codeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keypad_code_attempts_total",
			Help:      "Access codes submitted at the keypad by outcome.",
		}, []string{"outcome"}),
		sensorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_read_errors_total",
			Help:      "Failed door sensor reads by locker.",
		}, []string{"locker"}),
		keypadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keypad_read_errors_total",
			Help:      "Failed keypad polls.",
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_commits_total",
			Help:      "Durable locker writes by outcome.",
		}, []string{"outcome"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Registry snapshot uploads by outcome.",
		}, []string{"outcome"}),
		occupiedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "occupied",
			Help:      "Lockers currently reserved.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.actuations, m.actuationTime, m.codeAttempts, m.sensorErrors,
		m.keypadErrors, m.commits, m.snapshots, m.occupiedGauge,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Actuation(lockerID int, direction string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.actuations.WithLabelValues(strconv.Itoa(lockerID), direction, outcome(err)).Inc()
	if err == nil {
		m.actuationTime.WithLabelValues(direction).Observe(seconds)
	}
}

func (m *Metrics) CodeAttempt(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.codeAttempts.WithLabelValues("accepted").Inc()
		return
	}
	m.codeAttempts.WithLabelValues("rejected").Inc()
}

func (m *Metrics) SensorError(lockerID int) {
	if m == nil {
		return
	}
	m.sensorErrors.WithLabelValues(strconv.Itoa(lockerID)).Inc()
}

func (m *Metrics) KeypadError() {
	if m == nil {
		return
	}
	m.keypadErrors.Inc()
}

func (m *Metrics) Commit(err error) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) Snapshot(err error) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) SetOccupied(n int) {
	if m == nil {
		return
	}
	m.occupiedGauge.Set(float64(n))
}
