// Package metrics exposes the robot's Prometheus metrics and the /healthz
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the trading robot.
type Metrics struct {
	// Decision loop
	SignalsTotal     *prometheus.CounterVec // labels: action
	StepDuration     prometheus.Histogram
	CycleDuration    prometheus.Histogram
	StepErrors       *prometheus.CounterVec // labels: kind
	RSIAmbiguity     prometheus.Counter
	QuoteAge         prometheus.Gauge
	SymbolsTracked   prometheus.Gauge
	QuotesMissing    prometheus.Counter
	QuotesUnchanged  prometheus.Counter
	SeedFailures     prometheus.Counter
	SnapshotsWritten *prometheus.CounterVec // labels: store, result

	// Orders and positions
	OrdersTotal   *prometheus.CounterVec // labels: side, status
	OpenPositions prometheus.Gauge
	RealizedPnL   prometheus.Gauge

	// Storage
	SQLiteCommitDur          prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedSignals     prometheus.Gauge

	// Market session
	MarketState        prometheus.Gauge       // 0=closed, 1=open
	SessionTransitions *prometheus.CounterVec // labels: type=open|close

	// Signal stream
	WSClients prometheus.Gauge
	WSDrops   prometheus.Counter
}

// NewMetrics registers all metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_signals_total",
			Help: "Signals evaluated, by action",
		}, []string{"action"}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "robot_step_duration_seconds",
			Help:    "Indicator update plus decision latency per symbol",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "robot_cycle_duration_seconds",
			Help:    "Wall time of a full polling cycle",
			Buckets: prometheus.DefBuckets,
		}),
		StepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_step_errors_total",
			Help: "Rejected steps (out_of_order, symbol_mismatch, unknown_symbol, other)",
		}, []string{"kind"}),
		RSIAmbiguity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_rsi_division_ambiguity_total",
			Help: "RSI evaluations with zero average loss",
		}),
		QuoteAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_quote_age_seconds",
			Help: "Age of the oldest quote used in the last cycle",
		}),
		SymbolsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_symbols_tracked",
			Help: "Symbols with seeded indicator state",
		}),
		QuotesMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_quotes_missing_total",
			Help: "Tracked symbols without a usable quote in a cycle",
		}),
		QuotesUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_quotes_unchanged_total",
			Help: "Quotes skipped because they repeat the last folded bar",
		}),
		SeedFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_seed_failures_total",
			Help: "Symbols excluded because their history could not seed state",
		}),
		SnapshotsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_snapshots_total",
			Help: "State checkpoints written, by store and result",
		}, []string{"store", "result"}),

		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_orders_total",
			Help: "Orders submitted, by side and status",
		}, []string{"side", "status"}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_open_positions",
			Help: "Symbols currently held",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_realized_pnl",
			Help: "Realized P&L since start",
		}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "robot_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_redis_buffered_signals",
			Help: "Signals held locally while Redis is unavailable",
		}),

		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robot_session_transitions_total",
			Help: "Market session transitions (open, close)",
		}, []string{"type"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robot_ws_clients",
			Help: "Connected signal stream clients",
		}),
		WSDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robot_ws_dropped_messages_total",
			Help: "Signal messages dropped for slow clients",
		}),
	}

	reg.MustRegister(
		m.SignalsTotal,
		m.StepDuration,
		m.CycleDuration,
		m.StepErrors,
		m.RSIAmbiguity,
		m.QuoteAge,
		m.SymbolsTracked,
		m.QuotesMissing,
		m.QuotesUnchanged,
		m.SeedFailures,
		m.SnapshotsWritten,
		m.OrdersTotal,
		m.OpenPositions,
		m.RealizedPnL,
		m.SQLiteCommitDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedSignals,
		m.MarketState,
		m.SessionTransitions,
		m.WSClients,
		m.WSDrops,
	)

	return m
}
