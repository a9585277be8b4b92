package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ibrobot/internal/execution"
	"ibrobot/internal/indicator"
	"ibrobot/internal/logger"
	"ibrobot/internal/model"
	"ibrobot/internal/notification"
	"ibrobot/internal/state"
	"ibrobot/internal/strategy"
)

// CycleResult summarises one polling cycle.
type CycleResult struct {
	TraceID string
	Quotes  int
	Signals []strategy.Signal
	Orders  []execution.OrderResult
	// Unchanged lists symbols whose quote repeated the last folded bar.
	Unchanged []string
	// Rejected maps symbols whose quote could not be applied to the reason.
	Rejected map[string]error
}

// Cycle fetches quotes for every tracked symbol, steps each symbol once,
// dispatches the signals and acts on BUY/SELL.
func (r *Robot) Cycle(ctx context.Context) (CycleResult, error) {
	start := r.now()
	res := CycleResult{TraceID: logger.GenerateTraceID("cycle", start), Rejected: make(map[string]error)}
	ctx = logger.WithTraceID(ctx, res.TraceID)
	log := r.log.With(logger.LogWithTrace(ctx)...)

	symbols := r.container.Symbols()
	quotes, err := r.deps.Quotes.Quotes(ctx, symbols)
	if err != nil {
		return res, fmt.Errorf("fetch quotes: %w", err)
	}
	res.Quotes = len(quotes)
	r.observeQuotes(start, len(symbols), quotes)

	step := r.stepAll(quotes)
	for sym, err := range step.rejected {
		res.Rejected[sym] = err
		log.Warn("quote rejected", "symbol", sym, "error", err)
	}
	if len(step.unchanged) > 0 {
		log.Debug("quotes unchanged", "symbols", step.unchanged)
	}
	res.Signals = step.signals
	res.Unchanged = step.unchanged
	signals := step.signals

	r.appendBars(step.accepted)

	for _, q := range quotes {
		r.portfolio.UpdatePrice(q)
	}
	r.dispatch(ctx, signals)

	for _, sig := range signals {
		if !sig.Action.Actionable() {
			continue
		}
		r.notify(ctx, notification.SignalAlert(sig))
		if or, ok := r.act(ctx, sig); ok {
			res.Orders = append(res.Orders, or)
		}
	}

	elapsed := r.now().Sub(start)
	if m := r.deps.Metrics; m != nil {
		m.CycleDuration.Observe(elapsed.Seconds())
	}
	if h := r.deps.Health; h != nil {
		h.RecordCycle(r.now(), r.container.Len())
	}
	log.Info("cycle complete",
		"quotes", res.Quotes,
		"signals", len(signals),
		"orders", len(res.Orders),
		"rejected", len(res.Rejected),
		"elapsed", elapsed.String(),
	)
	return res, nil
}

func (r *Robot) observeQuotes(now time.Time, want int, quotes []model.Quote) {
	m := r.deps.Metrics
	if m == nil {
		return
	}
	if missing := want - len(quotes); missing > 0 {
		m.QuotesMissing.Add(float64(missing))
	}
	var oldest time.Duration
	for _, q := range quotes {
		if age := now.Sub(q.Tick().Time()); age > oldest {
			oldest = age
		}
	}
	m.QuoteAge.Set(oldest.Seconds())
}

// appendBars records each folded quote as a bar so the next start seeds
// from exactly the closes the live state has seen.
func (r *Robot) appendBars(quotes []model.Quote) {
	if r.deps.BarSink == nil || len(quotes) == 0 {
		return
	}
	ticks := make([]model.PriceTick, len(quotes))
	for i, q := range quotes {
		ticks[i] = q.Tick()
	}
	start := time.Now()
	if err := r.deps.BarSink.WriteBars(ticks); err != nil {
		r.log.Error("write bars failed", "error", err)
		return
	}
	if m := r.deps.Metrics; m != nil {
		m.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
}

type stepOutcome struct {
	signals   []strategy.Signal
	accepted  []model.Quote
	unchanged []string
	rejected  map[string]error
}

// stepAll advances each quoted symbol once. With more than one worker the
// symbols are stepped concurrently; each goroutine owns one symbol's slot.
// Signals and accepted quotes keep the quote order.
func (r *Robot) stepAll(quotes []model.Quote) stepOutcome {
	sigs := make([]strategy.Signal, len(quotes))
	errs := make([]error, len(quotes))

	if r.cfg.Workers <= 1 || len(quotes) <= 1 {
		for i, q := range quotes {
			sigs[i], errs[i] = r.step(q)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.cfg.Workers)
		for i, q := range quotes {
			i, q := i, q
			g.Go(func() error {
				sigs[i], errs[i] = r.step(q)
				return nil
			})
		}
		g.Wait()
	}

	out := stepOutcome{
		signals:  make([]strategy.Signal, 0, len(quotes)),
		accepted: make([]model.Quote, 0, len(quotes)),
		rejected: make(map[string]error),
	}
	for i, q := range quotes {
		switch {
		case errs[i] == nil:
			out.signals = append(out.signals, sigs[i])
			out.accepted = append(out.accepted, q)
		case errors.Is(errs[i], state.ErrUnchangedQuote):
			out.unchanged = append(out.unchanged, q.Symbol)
		default:
			out.rejected[q.Symbol] = errs[i]
		}
	}
	return out
}

func (r *Robot) step(q model.Quote) (strategy.Signal, error) {
	start := time.Now()
	sig, err := r.container.Step(q.Symbol, q)
	m := r.deps.Metrics
	if m == nil {
		return sig, err
	}
	if errors.Is(err, state.ErrUnchangedQuote) {
		m.QuotesUnchanged.Inc()
		return sig, err
	}
	if err != nil {
		m.StepErrors.WithLabelValues(errorKind(err)).Inc()
		return sig, err
	}
	m.StepDuration.Observe(time.Since(start).Seconds())
	m.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
	return sig, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, indicator.ErrOutOfOrderTick):
		return "out_of_order"
	case errors.Is(err, indicator.ErrSymbolMismatch):
		return "symbol_mismatch"
	case errors.Is(err, state.ErrUnknownSymbol):
		return "unknown_symbol"
	default:
		return "other"
	}
}

// dispatch journals every signal, then fans them out. Journal and publish
// failures are logged; they never stop the cycle.
func (r *Robot) dispatch(ctx context.Context, signals []strategy.Signal) {
	if len(signals) == 0 {
		return
	}
	if j := r.deps.Signals; j != nil {
		if err := j.WriteSignals(signals); err != nil {
			r.log.Error("journal signals failed", "error", err, "count", len(signals))
		}
	}
	if p := r.deps.Publisher; p != nil {
		if err := p.Publish(ctx, signals); err != nil {
			r.log.Warn("publish signals failed", "error", err, "count", len(signals))
		}
	}
	if s := r.deps.Stream; s != nil {
		s.PublishSignals(signals)
	}
}

func (r *Robot) notify(ctx context.Context, a notification.Alert) {
	if err := r.deps.Notifier.Send(ctx, a); err != nil {
		r.log.Warn("alert delivery failed", "title", a.Title, "error", err)
	}
}
