package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	HostsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hank_hosts_total",
			Help: "Total number of hosts by ring group and state",
		},
		[]string{"ring_group", "state"},
	)

	RingsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hank_rings_total",
			Help: "Total number of rings by ring group",
		},
		[]string{"ring_group"},
	)

	RingsFullyServing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hank_rings_fully_serving",
			Help: "Number of rings whose hosts are all serving with no pending command",
		},
		[]string{"ring_group"},
	)

	PendingCommands = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hank_pending_commands",
			Help: "Current plus queued host commands by ring group",
		},
		[]string{"ring_group"},
	)

	// Conductor metrics
	ConductorCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hank_conductor_cycles_total",
			Help: "Total number of transition passes by ring group and result",
		},
		[]string{"ring_group", "result"},
	)

	ConductorCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hank_conductor_cycle_duration_seconds",
			Help:    "Time taken by one transition pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"ring_group"},
	)

	CommandsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hank_commands_issued_total",
			Help: "Total number of host commands enqueued by the conductor",
		},
		[]string{"command"},
	)

	AssignmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hank_assignments_total",
			Help: "Total number of partition assignments written to hosts",
		},
	)

	// Agent metrics
	AgentCommandsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hank_agent_commands_executed_total",
			Help: "Total number of host commands executed by agents",
		},
		[]string{"command"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hank_api_requests_total",
			Help: "Total number of API requests by path and status",
		},
		[]string{"path", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(HostsTotal)
	prometheus.MustRegister(RingsTotal)
	prometheus.MustRegister(RingsFullyServing)
	prometheus.MustRegister(PendingCommands)
	prometheus.MustRegister(ConductorCyclesTotal)
	prometheus.MustRegister(ConductorCycleDuration)
	prometheus.MustRegister(CommandsIssued)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(AgentCommandsExecuted)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds on h
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed seconds on the labeled child of h
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
