package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for stackyard.
type Metrics struct {
	registry                 *prometheus.Registry
	cycleDurationSeconds     prometheus.Histogram
	stacksTotal              *prometheus.GaugeVec
	transitionsTotal         *prometheus.CounterVec
	reconcileDroppedTotal    prometheus.Counter
	runtimeCommandSeconds    *prometheus.HistogramVec
	runtimeErrorsTotal       *prometheus.CounterVec
	lifecycleOperationsTotal *prometheus.CounterVec
	logStreamsActive         prometheus.Gauge
	logStreamsClosedTotal    *prometheus.CounterVec
	lastSuccessfulCycleGauge prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackyard_cycle_duration_seconds",
			Help:    "Duration of watch loop reconciliation cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		stacksTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackyard_stacks",
			Help: "Reconciled stacks by aggregate status and control level.",
		}, []string{"status", "control"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackyard_transitions_total",
			Help: "Aggregate status transitions detected by stack and target status.",
		}, []string{"stack", "status"}),
		reconcileDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackyard_reconcile_dropped_total",
			Help: "Unmanaged runtime stacks dropped because a managed stack shares the name.",
		}),
		runtimeCommandSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stackyard_runtime_command_duration_seconds",
			Help:    "Duration of one-shot runtime commands by subcommand.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		runtimeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackyard_runtime_errors_total",
			Help: "Failed runtime commands by error kind.",
		}, []string{"kind"}),
		lifecycleOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackyard_lifecycle_operations_total",
			Help: "Lifecycle operations by operation and result.",
		}, []string{"operation", "result"}),
		logStreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackyard_log_streams_active",
			Help: "Log streams currently open.",
		}),
		logStreamsClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackyard_log_streams_closed_total",
			Help: "Closed log streams by close reason.",
		}, []string{"reason"}),
		lastSuccessfulCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackyard_last_successful_cycle_timestamp",
			Help: "Unix timestamp of the last successful cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.stacksTotal,
		m.transitionsTotal,
		m.reconcileDroppedTotal,
		m.runtimeCommandSeconds,
		m.runtimeErrorsTotal,
		m.lifecycleOperationsTotal,
		m.logStreamsActive,
		m.logStreamsClosedTotal,
		m.lastSuccessfulCycleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycleDuration records the duration of a completed cycle.
func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
}

// ResetStacks clears the stacks gauge before a new snapshot is recorded.
func (m *Metrics) ResetStacks() {
	if m == nil {
		return
	}
	m.stacksTotal.Reset()
}

// SetStacks sets the number of stacks with the given status and control level.
func (m *Metrics) SetStacks(status string, control string, value int) {
	if m == nil {
		return
	}
	m.stacksTotal.WithLabelValues(status, control).Set(float64(value))
}

// IncTransitions counts a status transition of stack to status.
func (m *Metrics) IncTransitions(stack string, status string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(stack, status).Inc()
}

// AddReconcileDropped counts dropped duplicate runtime entries.
func (m *Metrics) AddReconcileDropped(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.reconcileDroppedTotal.Add(float64(count))
}

// ObserveRuntimeCommand records the duration of a runtime command.
func (m *Metrics) ObserveRuntimeCommand(command string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runtimeCommandSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// IncRuntimeErrors increments the runtime error counter for kind.
func (m *Metrics) IncRuntimeErrors(kind string) {
	if m == nil {
		return
	}
	m.runtimeErrorsTotal.WithLabelValues(kind).Inc()
}

// IncLifecycleOperations counts a lifecycle operation outcome.
func (m *Metrics) IncLifecycleOperations(operation string, result string) {
	if m == nil {
		return
	}
	m.lifecycleOperationsTotal.WithLabelValues(operation, result).Inc()
}

// SetLogStreamsActive sets the number of open log streams.
func (m *Metrics) SetLogStreamsActive(value int) {
	if m == nil {
		return
	}
	m.logStreamsActive.Set(float64(value))
}

// IncLogStreamsClosed counts a closed log stream by reason.
func (m *Metrics) IncLogStreamsClosed(reason string) {
	if m == nil {
		return
	}
	m.logStreamsClosedTotal.WithLabelValues(reason).Inc()
}

// SetLastSuccessfulCycleTimestamp sets the last successful cycle time.
func (m *Metrics) SetLastSuccessfulCycleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulCycleGauge.Set(float64(t.Unix()))
}
