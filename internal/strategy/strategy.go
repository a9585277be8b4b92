// Package strategy turns indicator states into trading signals.
//
// The Evaluator combines an RSI regime with MACD confirmation and the
// symbol's portfolio facts. It only proposes transitions: a BUY or SELL is a
// request, the portfolio layer commits the position once the order fills.
package strategy

import (
	"fmt"
	"time"

	"ibrobot/internal/indicator"
)

// Action is the decision emitted for one evaluated tick.
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionNoSignal Action = "NO SIGNAL"
)

// Actionable reports whether the action requires an order.
func (a Action) Actionable() bool { return a == ActionBuy || a == ActionSell }

// Regime is the RSI classification of a state.
type Regime string

const (
	RegimeBuyBias  Regime = "BUY_BIAS"
	RegimeSellBias Regime = "SELL_BIAS"
	RegimeNeutral  Regime = "NEUTRAL"
)

// Config holds the decision thresholds.
type Config struct {
	RSIBuyThreshold  float64 // BUY_BIAS at or below, 30
	RSISellThreshold float64 // SELL_BIAS at or above, 60

	// SkipProfitCheck drops the profit-ratio and bid conditions from SELL.
	// Only used when exercising the order path end to end.
	SkipProfitCheck bool
}

// DefaultConfig returns the 30/60 RSI thresholds.
func DefaultConfig() Config {
	return Config{RSIBuyThreshold: 30, RSISellThreshold: 60}
}

// Validate checks the thresholds are ordered and inside the RSI domain.
func (c Config) Validate() error {
	if c.RSIBuyThreshold < 0 || c.RSISellThreshold > 100 {
		return fmt.Errorf("strategy: thresholds out of [0,100]: buy=%g sell=%g", c.RSIBuyThreshold, c.RSISellThreshold)
	}
	if c.RSIBuyThreshold >= c.RSISellThreshold {
		return fmt.Errorf("strategy: buy threshold %g must be below sell threshold %g", c.RSIBuyThreshold, c.RSISellThreshold)
	}
	return nil
}

// Signal is the immutable record of one decision. It carries every input the
// decision was made from so that the signal log is self-describing.
type Signal struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Timestamp int64  `json:"timestamp"`
	Action    Action `json:"action"`
	Regime    Regime `json:"regime"`
	Reason    string `json:"reason"`

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	EMAShort   float64 `json:"ema_short"`
	EMALong    float64 `json:"ema_long"`
	AvgGain    float64 `json:"avg_gain"`
	AvgLoss    float64 `json:"avg_loss"`

	CurrentPrice  float64 `json:"current_price"`
	BidPrice      float64 `json:"bid_price"`
	AskPrice      float64 `json:"ask_price"`
	PurchasePrice float64 `json:"purchase_price"`
	InPortfolio   bool    `json:"in_portfolio"`
}

// Time returns the signal timestamp as UTC time.
func (s Signal) Time() time.Time { return time.Unix(s.Timestamp, 0).UTC() }

func fromState(st indicator.State) Signal {
	return Signal{
		Symbol:     st.Symbol,
		Timestamp:  st.LastTimestamp,
		RSI:        st.RSI,
		MACD:       st.MACD,
		MACDSignal: st.MACDSignal,
		EMAShort:   st.EMAShort,
		EMALong:    st.EMALong,
		AvgGain:    st.AvgGain,
		AvgLoss:    st.AvgLoss,
	}
}
