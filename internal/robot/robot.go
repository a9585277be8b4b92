// Package robot runs the trading loop: it seeds per-symbol indicator state
// from stored bars, polls quotes every interval while the market is open,
// turns each quote into a signal, journals and fans the signals out, and
// acts on BUY/SELL through the executor.
package robot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ibrobot/internal/execution"
	"ibrobot/internal/indicator"
	"ibrobot/internal/markethours"
	"ibrobot/internal/metrics"
	"ibrobot/internal/model"
	"ibrobot/internal/notification"
	"ibrobot/internal/portfolio"
	"ibrobot/internal/state"
	"ibrobot/internal/strategy"
)

// SignalJournal persists every evaluated signal.
type SignalJournal interface {
	WriteSignals(signals []strategy.Signal) error
}

// SignalPublisher fans signals out to downstream consumers (Redis).
type SignalPublisher interface {
	Publish(ctx context.Context, signals []strategy.Signal) error
}

// SignalStream pushes signals to live dashboard clients.
type SignalStream interface {
	PublishSignals(signals []strategy.Signal)
}

// TradeJournal persists fills.
type TradeJournal interface {
	Record(e execution.TradeEntry) error
}

// SnapshotTarget is a named checkpoint store.
type SnapshotTarget struct {
	Name string
	model.SnapshotStore
}

// Config holds the runner settings.
type Config struct {
	Account          string
	Session          markethours.Session
	PollInterval     time.Duration
	Workers          int
	SnapshotInterval time.Duration
	// SeedBars is how many stored bars to read per symbol at startup;
	// 0 reads five times the indicator minimum.
	SeedBars  int
	Indicator indicator.Config
	Strategy  strategy.Config
	Risk      portfolio.RiskLimits
}

// Deps are the collaborators the runner drives. Quotes, Bars and Executor
// are required; everything else may be nil.
type Deps struct {
	Quotes    model.QuoteSource
	Bars      model.BarReader
	BarSink   model.BarWriter
	Signals   SignalJournal
	Publisher SignalPublisher
	Stream    SignalStream
	Notifier  notification.Notifier
	Executor  execution.Executor
	Trades    TradeJournal
	// Snapshots are tried in order on restore and all written on checkpoint.
	Snapshots []SnapshotTarget

	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
	Logger  *slog.Logger
	Now     func() time.Time
}

// Robot is the trading loop for one account.
type Robot struct {
	cfg       Config
	deps      Deps
	log       *slog.Logger
	now       func() time.Time
	watchlist map[string]model.Instrument
	symbols   []string

	container *state.Container
	portfolio *portfolio.Portfolio
	pnl       *portfolio.PnLTracker
	risk      *portfolio.RiskManager

	// excluded holds symbols that could not be seeded.
	excluded map[string]error
	wasOpen  bool
}

// New wires a Robot for the watchlist instruments.
func New(cfg Config, watchlist []model.Instrument, deps Deps) (*Robot, error) {
	if deps.Quotes == nil || deps.Bars == nil || deps.Executor == nil {
		return nil, errors.New("robot: quotes, bars and executor are required")
	}
	if len(watchlist) == 0 {
		return nil, errors.New("robot: empty watchlist")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notification.NewLogNotifier()
	}

	r := &Robot{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Logger.With("component", "robot"),
		now:       deps.Now,
		watchlist: make(map[string]model.Instrument, len(watchlist)),
		excluded:  make(map[string]error),
		portfolio: portfolio.New(),
		pnl:       portfolio.NewPnLTracker(),
	}

	equity := 0.0
	for _, in := range watchlist {
		if _, dup := r.watchlist[in.Symbol]; dup {
			return nil, fmt.Errorf("robot: duplicate symbol %s", in.Symbol)
		}
		r.watchlist[in.Symbol] = in
		r.symbols = append(r.symbols, in.Symbol)
		equity += in.Capital
	}
	r.risk = portfolio.NewRiskManager(cfg.Risk, r.portfolio, equity)

	engine, err := indicator.NewEngine(cfg.Indicator, indicator.WithWarningHook(r.onWarning))
	if err != nil {
		return nil, fmt.Errorf("robot: %w", err)
	}
	eval, err := strategy.NewEvaluator(cfg.Strategy, nil)
	if err != nil {
		return nil, fmt.Errorf("robot: %w", err)
	}
	r.container = state.NewContainer(engine, eval)
	return r, nil
}

// Container exposes the per-symbol state, e.g. for inspection endpoints.
func (r *Robot) Container() *state.Container { return r.container }

// Portfolio returns the open positions tracker.
func (r *Robot) Portfolio() *portfolio.Portfolio { return r.portfolio }

// PnL returns the realized P&L tracker.
func (r *Robot) PnL() *portfolio.PnLTracker { return r.pnl }

// Excluded returns the symbols dropped at startup and why.
func (r *Robot) Excluded() map[string]error {
	out := make(map[string]error, len(r.excluded))
	for k, v := range r.excluded {
		out[k] = v
	}
	return out
}

func (r *Robot) onWarning(w indicator.DivisionAmbiguityWarning) {
	if m := r.deps.Metrics; m != nil {
		m.RSIAmbiguity.Inc()
	}
	indicator.LogWarning(w)
}

// Run restores or seeds state, then polls every interval until ctx is
// cancelled. A final checkpoint is written on the way out.
func (r *Robot) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	if r.cfg.SnapshotInterval > 0 && len(r.deps.Snapshots) > 0 {
		go r.snapshotLoop(ctx)
	}

	r.log.Info("robot running",
		"symbols", r.container.Len(),
		"excluded", len(r.excluded),
		"interval", r.cfg.PollInterval.String(),
		"market", r.cfg.Session.StatusString(r.now()),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one cycle when the session is open and tracks open/close
// transitions.
func (r *Robot) tick(ctx context.Context) {
	now := r.now()
	open := r.cfg.Session.IsOpen(now)
	r.marketTransition(open)
	if !open {
		return
	}
	if _, err := r.Cycle(ctx); err != nil {
		r.log.Error("cycle failed", "error", err)
	}
}

func (r *Robot) marketTransition(open bool) {
	if h := r.deps.Health; h != nil {
		h.SetMarketOpen(open)
	}
	if m := r.deps.Metrics; m != nil {
		if open {
			m.MarketState.Set(1)
		} else {
			m.MarketState.Set(0)
		}
	}
	if open == r.wasOpen {
		return
	}
	r.wasOpen = open
	kind := "close"
	if open {
		kind = "open"
		r.risk.ResetDaily()
	}
	if m := r.deps.Metrics; m != nil {
		m.SessionTransitions.WithLabelValues(kind).Inc()
	}
	r.log.Info("market session "+kind, "status", r.cfg.Session.StatusString(r.now()))
}

func (r *Robot) shutdown() {
	r.log.Info("shutdown signal received, saving final snapshot")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Checkpoint(ctx); err != nil {
		r.log.Warn("final snapshot failed", "error", err)
	}
}
