package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ActiveMatches  prometheus.Gauge
	IntentsHandled *prometheus.CounterVec
	TurnTimeouts   prometheus.Counter
	SolveTimeouts  prometheus.Counter
	PlayersEjected prometheus.Counter
	SweepDuration  prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ActiveMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_matches",
			Help:      "Number of live matches in the store",
		}),
		IntentsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_handled_total",
			Help:      "Player intents handled, by intent and result",
		}, []string{"intent", "result"}),
		TurnTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_timeouts_total",
			Help:      "Turn deadlines that expired",
		}),
		SolveTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_timeouts_total",
			Help:      "Solve deadlines that expired",
		}),
		PlayersEjected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_ejected_total",
			Help:      "Players removed after reaching the timeout threshold",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one full timeout sweep",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	prometheus.MustRegister(
		m.ActiveMatches,
		m.IntentsHandled,
		m.TurnTimeouts,
		m.SolveTimeouts,
		m.PlayersEjected,
		m.SweepDuration,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) SetActiveMatches(count int) {
	m.metrics.ActiveMatches.Set(float64(count))
}

func (m *Monitor) IntentHandled(intent, result string) {
	m.metrics.IntentsHandled.WithLabelValues(intent, result).Inc()
}

func (m *Monitor) TurnTimedOut() {
	m.metrics.TurnTimeouts.Inc()
}

func (m *Monitor) SolveTimedOut() {
	m.metrics.SolveTimeouts.Inc()
}

func (m *Monitor) PlayerEjected() {
	m.metrics.PlayersEjected.Inc()
}

func (m *Monitor) ObserveSweepDuration(duration time.Duration) {
	m.metrics.SweepDuration.Observe(duration.Seconds())
}
