package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for PnL runs.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec // labels: status=ok|error
	TradesTotal       prometheus.Counter
	RejectedTotal     prometheus.Counter
	ClosedTradesTotal prometheus.Counter
	LastTotalProfit   prometheus.Gauge
	RunDur            prometheus.Histogram
	JournalCommitDur  prometheus.Histogram

	reg *prometheus.Registry
}

// NewMetrics registers all metrics on a fresh registry, so several instances
// can live in one process (tests, embedded servers).
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebook_runs_total",
			Help: "PnL runs executed (by status)",
		}, []string{"status"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebook_trades_total",
			Help: "Trades applied to a ledger",
		}),
		RejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebook_rejected_trades_total",
			Help: "Malformed trades skipped",
		}),
		ClosedTradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebook_closed_trades_total",
			Help: "Trades that realized a non-zero PnL",
		}),
		LastTotalProfit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebook_last_total_profit",
			Help: "Total realized PnL of the most recent run",
		}),
		RunDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebook_run_duration_seconds",
			Help:    "Engine processing latency per run",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		JournalCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebook_journal_commit_duration_seconds",
			Help:    "SQLite run commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		reg: prometheus.NewRegistry(),
	}

	m.reg.MustRegister(
		m.RunsTotal,
		m.TradesTotal,
		m.RejectedTotal,
		m.ClosedTradesTotal,
		m.LastTotalProfit,
		m.RunDur,
		m.JournalCommitDur,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of one finished run.
func (m *Metrics) ObserveRun(trades, rejected, closed int, totalProfit, seconds float64) {
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.TradesTotal.Add(float64(trades))
	m.RejectedTotal.Add(float64(rejected))
	m.ClosedTradesTotal.Add(float64(closed))
	m.LastTotalProfit.Set(totalProfit)
	m.RunDur.Observe(seconds)
}

// RunFailed counts a run that returned an error.
func (m *Metrics) RunFailed() {
	m.RunsTotal.WithLabelValues("error").Inc()
}
