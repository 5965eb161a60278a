package observability

import (
	"strconv"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neo6",
			Subsystem: "router",
			Name:      "invocations_total",
			Help:      "Total router invocations by transaction, protocol and outcome.",
		},
		[]string{"transaction_id", "protocol", "outcome"},
	)
	InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neo6",
			Subsystem: "router",
			Name:      "invocation_duration_seconds",
			Help:      "Router invocation latency by protocol.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"protocol"},
	)
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "neo6",
			Subsystem: "router",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per protocol/endpoint (0=closed,1=open,2=half-open).",
		},
		[]string{"protocol", "endpoint"},
	)
	Retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neo6",
			Subsystem: "router",
			Name:      "retries_total",
			Help:      "Total retry attempts by protocol and error kind.",
		},
		[]string{"protocol", "kind"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neo6",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "REST listener requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neo6",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "REST listener request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RegisterMetrics registers every collector exactly once, safe to call from
// multiple entry points (main, tests) without double-registration panics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Invocations, InvocationDuration, CircuitState, Retries,
			httpRequests, httpDuration,
		)
	})
}

// RecordHTTPRequest folds one REST listener request into the http_* series.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordInvocation folds one router invocation outcome into the router_*
// series.
func RecordInvocation(transactionID, protocol, outcome string, duration time.Duration) {
	RegisterMetrics()
	Invocations.WithLabelValues(transactionID, protocol, outcome).Inc()
	InvocationDuration.WithLabelValues(protocol).Observe(duration.Seconds())
}

// RecordRetry folds one retry attempt into the retries_total series.
func RecordRetry(protocol, kind string) {
	RegisterMetrics()
	Retries.WithLabelValues(protocol, kind).Inc()
}

// SetCircuitState publishes the current breaker state gauge for
// (protocol,endpoint): 0=closed, 1=open, 2=half-open.
func SetCircuitState(protocol, endpoint string, state float64) {
	RegisterMetrics()
	CircuitState.WithLabelValues(protocol, endpoint).Set(state)
}

// Snapshot flattens the default registry's collected metric families into a
// name->value map, for the admin socket's GetMetrics command. Vector
// metrics fold to one entry per label combination, named
// "<metric>{<label>=<value>,...}".
func Snapshot() map[string]float64 {
	out := map[string]float64{}
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return out
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			out[metricKey(family.GetName(), m)] = metricValue(family.GetType(), m)
		}
	}
	return out
}

func metricKey(name string, m *dto.Metric) string {
	if len(m.GetLabel()) == 0 {
		return name
	}
	key := name + "{"
	for i, lp := range m.GetLabel() {
		if i > 0 {
			key += ","
		}
		key += lp.GetName() + "=" + lp.GetValue()
	}
	return key + "}"
}

func metricValue(kind dto.MetricType, m *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return m.GetHistogram().GetSampleSum()
	default:
		return 0
	}
}
