// Package indicator maintains the incremental MACD and RSI state of a single
// instrument.
//
// A State is a plain value. Seed folds a price history into a State and
// Update advances it by one tick; Seed is defined as repeated application of
// the same step Update uses, so seeding with N+1 bars and seeding with N bars
// followed by one Update produce identical states.
package indicator

import (
	"fmt"
	"log/slog"
	"math"
)

// NeutralRSI is reported when no price movement has been observed.
const NeutralRSI = 50.0

// Config holds the indicator periods and the seed requirements.
type Config struct {
	ShortPeriod  int // fast EMA, 12
	LongPeriod   int // slow EMA, 26
	SignalPeriod int // EMA of MACD, 9
	RSIPeriod    int // Wilder period, 14

	// MinHistory is the fewest bars Seed accepts.
	MinHistory int

	// MACDHistory is the capacity of the MACD ring kept next to each State.
	MACDHistory int
}

// DefaultConfig returns the 12/26/9 MACD and 14-period RSI setup seeded from
// the last 52 bars.
func DefaultConfig() Config {
	return Config{
		ShortPeriod:  12,
		LongPeriod:   26,
		SignalPeriod: 9,
		RSIPeriod:    14,
		MinHistory:   52,
		MACDHistory:  9,
	}
}

// Validate checks the periods and normalises the history sizes.
func (c *Config) Validate() error {
	if c.ShortPeriod <= 0 || c.LongPeriod <= 0 || c.SignalPeriod <= 0 || c.RSIPeriod <= 0 {
		return fmt.Errorf("indicator: periods must be positive (short=%d long=%d signal=%d rsi=%d)",
			c.ShortPeriod, c.LongPeriod, c.SignalPeriod, c.RSIPeriod)
	}
	if c.ShortPeriod >= c.LongPeriod {
		return fmt.Errorf("indicator: short period %d must be below long period %d", c.ShortPeriod, c.LongPeriod)
	}
	if c.MinHistory < 2 {
		c.MinHistory = 2
	}
	if c.MACDHistory < c.SignalPeriod {
		c.MACDHistory = c.SignalPeriod
	}
	return nil
}

// State is the complete indicator state of one instrument after the last
// processed bar. It holds no references and can be copied freely.
type State struct {
	Symbol string `json:"symbol"`

	EMAShort   float64 `json:"ema_short"`
	EMALong    float64 `json:"ema_long"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`

	AvgGain float64 `json:"avg_gain"`
	AvgLoss float64 `json:"avg_loss"`
	RSI     float64 `json:"rsi"`

	PrevClose     float64 `json:"prev_close"`
	LastTimestamp int64   `json:"last_timestamp"`

	// Bars counts every close folded into the state.
	Bars int `json:"bars"`
}

// Seeded reports whether at least one bar has been folded in.
func (s State) Seeded() bool { return s.Bars > 0 }

// Deltas is the number of close-to-close changes the RSI averages cover.
func (s State) Deltas() int {
	if s.Bars == 0 {
		return 0
	}
	return s.Bars - 1
}

// Valid reports whether every numeric field is finite and the averages and
// RSI are inside their domains.
func (s State) Valid() bool {
	for _, v := range []float64{s.EMAShort, s.EMALong, s.MACD, s.MACDSignal, s.AvgGain, s.AvgLoss, s.RSI, s.PrevClose} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.AvgGain >= 0 && s.AvgLoss >= 0 && s.RSI >= 0 && s.RSI <= 100
}

// LogValue renders the state compactly for slog.
func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("symbol", s.Symbol),
		slog.Float64("macd", s.MACD),
		slog.Float64("signal", s.MACDSignal),
		slog.Float64("rsi", s.RSI),
		slog.Int("bars", s.Bars),
	)
}
