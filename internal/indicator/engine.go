package indicator

import (
	"log/slog"

	"ibrobot/internal/model"
	"ibrobot/internal/ringbuf"
)

// WarningHook receives non-fatal numerical warnings.
type WarningHook func(DivisionAmbiguityWarning)

// Engine seeds and advances indicator states. It holds only configuration
// and is safe for concurrent use.
type Engine struct {
	cfg         Config
	alphaShort  float64
	alphaLong   float64
	alphaSignal float64
	onWarning   WarningHook
}

// Option customises an Engine.
type Option func(*Engine)

// WithWarningHook replaces the default warning hook, which logs through slog.
func WithWarningHook(h WarningHook) Option {
	return func(e *Engine) {
		if h != nil {
			e.onWarning = h
		}
	}
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:         cfg,
		alphaShort:  Alpha(cfg.ShortPeriod),
		alphaLong:   Alpha(cfg.LongPeriod),
		alphaSignal: Alpha(cfg.SignalPeriod),
		onWarning:   LogWarning,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() Config { return e.cfg }

// NewHistory returns an empty MACD ring sized for this engine.
func (e *Engine) NewHistory() *ringbuf.Ring[float64] {
	return ringbuf.New[float64](e.cfg.MACDHistory)
}

// Seed folds history, oldest first, into a fresh State and returns it with
// the ring of the most recent MACD values.
func (e *Engine) Seed(history []model.PriceTick) (State, *ringbuf.Ring[float64], error) {
	if len(history) < e.cfg.MinHistory {
		sym := ""
		if len(history) > 0 {
			sym = history[0].Symbol
		}
		return State{}, nil, &InsufficientHistoryError{Symbol: sym, Have: len(history), Need: e.cfg.MinHistory}
	}

	st := State{Symbol: history[0].Symbol}
	ring := e.NewHistory()
	ambiguous := false
	for _, tick := range history {
		if err := e.check(st, tick); err != nil {
			return State{}, nil, err
		}
		st, ambiguous = e.step(st, tick)
		ring.Push(st.MACD)
	}
	if ambiguous {
		e.warn(st)
	}
	return st, ring, nil
}

// Update advances prev by one tick and pushes the new MACD into history.
// On error neither prev nor history is modified.
func (e *Engine) Update(prev State, history *ringbuf.Ring[float64], tick model.PriceTick) (State, error) {
	if err := e.check(prev, tick); err != nil {
		return prev, err
	}
	next, ambiguous := e.step(prev, tick)
	if history != nil {
		history.Push(next.MACD)
	}
	if ambiguous {
		e.warn(next)
	}
	return next, nil
}

func (e *Engine) check(st State, tick model.PriceTick) error {
	if st.Symbol != "" && tick.Symbol != "" && st.Symbol != tick.Symbol {
		return &SymbolMismatchError{Want: st.Symbol, Got: tick.Symbol}
	}
	if st.Bars > 0 && tick.Timestamp < st.LastTimestamp {
		return &OutOfOrderTickError{Symbol: st.Symbol, Last: st.LastTimestamp, Got: tick.Timestamp}
	}
	return nil
}

// step is the single recurrence shared by Seed and Update.
func (e *Engine) step(s State, tick model.PriceTick) (State, bool) {
	price := tick.Close
	ambiguous := false

	if s.Bars == 0 {
		s.EMAShort = price
		s.EMALong = price
		s.MACD = 0
		s.MACDSignal = 0
		s.AvgGain = 0
		s.AvgLoss = 0
		s.RSI = NeutralRSI
	} else {
		s.EMAShort = emaNext(s.EMAShort, price, e.alphaShort)
		s.EMALong = emaNext(s.EMALong, price, e.alphaLong)
		s.MACD = s.EMAShort - s.EMALong
		s.MACDSignal = emaNext(s.MACDSignal, s.MACD, e.alphaSignal)

		gain, loss := splitDelta(price - s.PrevClose)
		k := s.Bars // index of this delta
		s.AvgGain = wilderNext(s.AvgGain, gain, k, e.cfg.RSIPeriod)
		s.AvgLoss = wilderNext(s.AvgLoss, loss, k, e.cfg.RSIPeriod)
		s.RSI, ambiguous = RelativeStrength(s.AvgGain, s.AvgLoss)
	}

	if s.Symbol == "" {
		s.Symbol = tick.Symbol
	}
	s.PrevClose = price
	s.LastTimestamp = tick.Timestamp
	s.Bars++
	return s, ambiguous
}

func (e *Engine) warn(s State) {
	e.onWarning(DivisionAmbiguityWarning{
		Symbol:    s.Symbol,
		Timestamp: s.LastTimestamp,
		AvgGain:   s.AvgGain,
		AvgLoss:   s.AvgLoss,
		Applied:   s.RSI,
	})
}

// LogWarning is the default warning hook.
func LogWarning(w DivisionAmbiguityWarning) {
	slog.Warn("rsi division ambiguity",
		"symbol", w.Symbol,
		"ts", w.Timestamp,
		"avg_gain", w.AvgGain,
		"avg_loss", w.AvgLoss,
		"applied", w.Applied,
	)
}
