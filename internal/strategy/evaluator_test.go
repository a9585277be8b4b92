package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
)

func fixedID() string { return "sig-1" }

func newEvaluator(t *testing.T, cfg Config) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(cfg, fixedID)
	require.NoError(t, err)
	return ev
}

func state(rsi, macd, signal float64) indicator.State {
	return indicator.State{Symbol: "AAPL", LastTimestamp: 1_700_000_000, RSI: rsi, MACD: macd, MACDSignal: signal, Bars: 60}
}

func quote(last, bid, ask float64) model.Quote {
	return model.Quote{Symbol: "AAPL", Timestamp: 1_700_000_000, Last: last, Bid: bid, Ask: ask}
}

func held(purchase, threshold float64) model.PortfolioFact {
	return model.PortfolioFact{InPortfolio: true, PurchasePrice: purchase, ProfitMarginThreshold: threshold, Quantity: 10}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{RSIBuyThreshold: 60, RSISellThreshold: 30}.Validate())
	assert.Error(t, Config{RSIBuyThreshold: -1, RSISellThreshold: 60}.Validate())
	assert.Error(t, Config{RSIBuyThreshold: 30, RSISellThreshold: 101}.Validate())

	_, err := NewEvaluator(Config{RSIBuyThreshold: 50, RSISellThreshold: 50}, nil)
	assert.Error(t, err)
}

func TestRegime(t *testing.T) {
	ev := newEvaluator(t, DefaultConfig())
	assert.Equal(t, RegimeBuyBias, ev.Regime(0))
	assert.Equal(t, RegimeBuyBias, ev.Regime(30))
	assert.Equal(t, RegimeNeutral, ev.Regime(30.0001))
	assert.Equal(t, RegimeNeutral, ev.Regime(59.9999))
	assert.Equal(t, RegimeSellBias, ev.Regime(60))
	assert.Equal(t, RegimeSellBias, ev.Regime(100))
}

func TestEvaluate(t *testing.T) {
	flatFacts := model.PortfolioFact{ProfitMarginThreshold: 1.05}

	cases := []struct {
		name  string
		st    indicator.State
		facts model.PortfolioFact
		q     model.Quote
		want  Action
	}{
		{"buy", state(25, 0.5, 0.2), flatFacts, quote(100, 99.9, 100.1), ActionBuy},
		{"buy at threshold", state(30, 0.5, 0.2), flatFacts, quote(100, 99.9, 100.1), ActionBuy},
		{"buy blocked when held", state(25, 0.5, 0.2), held(90, 1.05), quote(100, 99.9, 100.1), ActionNoSignal},
		{"buy needs macd above signal", state(25, 0.2, 0.5), flatFacts, quote(100, 99.9, 100.1), ActionNoSignal},
		{"macd equal to signal confirms nothing", state(25, 0.3, 0.3), flatFacts, quote(100, 99.9, 100.1), ActionNoSignal},
		{"neutral", state(45, 0.5, 0.2), flatFacts, quote(100, 99.9, 100.1), ActionNoSignal},

		{"sell", state(70, 0.2, 0.5), held(100, 1.05), quote(110, 109.9, 110.1), ActionSell},
		{"sell at exact threshold", state(60, 0.2, 0.5), held(100, 1.05), quote(105, 104.9, 105.1), ActionSell},
		{"sell needs position", state(70, 0.2, 0.5), flatFacts, quote(110, 109.9, 110.1), ActionNoSignal},
		{"sell needs macd below signal", state(70, 0.5, 0.2), held(100, 1.05), quote(110, 109.9, 110.1), ActionNoSignal},
		{"sell macd equal", state(70, 0.4, 0.4), held(100, 1.05), quote(110, 109.9, 110.1), ActionNoSignal},
		{"sell below profit margin", state(70, 0.2, 0.5), held(100, 1.05), quote(104, 103.9, 104.1), ActionNoSignal},
		{"sell bid below purchase", state(70, 0.2, 0.5), held(100, 1.05), quote(106, 99.5, 106.1), ActionNoSignal},
		{"sell zero purchase price", state(70, 0.2, 0.5), held(0, 1.05), quote(110, 109.9, 110.1), ActionNoSignal},
		{"sell negative purchase price", state(70, 0.2, 0.5), held(-5, 1.05), quote(110, 109.9, 110.1), ActionNoSignal},
	}

	ev := newEvaluator(t, DefaultConfig())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := ev.Evaluate(tc.st, tc.facts, tc.q)
			assert.Equal(t, tc.want, sig.Action, sig.Reason)
			assert.NotEmpty(t, sig.Reason)
			assert.Equal(t, "sig-1", sig.ID)
			assert.Equal(t, tc.st.RSI, sig.RSI)
			assert.Equal(t, tc.q.Bid, sig.BidPrice)
			assert.Equal(t, tc.facts.InPortfolio, sig.InPortfolio)
		})
	}
}

func TestEvaluate_SkipProfitCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipProfitCheck = true
	ev := newEvaluator(t, cfg)

	sig := ev.Evaluate(state(70, 0.2, 0.5), held(100, 1.05), quote(90, 89.9, 90.1))
	assert.Equal(t, ActionSell, sig.Action)

	// Position and MACD conditions still apply.
	sig = ev.Evaluate(state(70, 0.2, 0.5), model.PortfolioFact{}, quote(90, 89.9, 90.1))
	assert.Equal(t, ActionNoSignal, sig.Action)
}

func TestEvaluate_DeterministicAndExclusive(t *testing.T) {
	ev := newEvaluator(t, DefaultConfig())
	rsis := []float64{0, 15, 30, 45, 60, 85, 100}
	macds := []float64{-1, 0, 1}
	facts := []model.PortfolioFact{{}, held(100, 1.05), held(0, 1.05)}
	quotes := []model.Quote{quote(90, 89, 91), quote(120, 119, 121)}

	for _, rsi := range rsis {
		for _, m := range macds {
			for _, s := range macds {
				for _, f := range facts {
					for _, q := range quotes {
						st := state(rsi, m, s)
						a := ev.Evaluate(st, f, q)
						b := ev.Evaluate(st, f, q)
						require.Equal(t, a, b)

						if a.Action == ActionBuy {
							assert.False(t, f.InPortfolio)
							assert.LessOrEqual(t, rsi, 30.0)
						}
						if a.Action == ActionSell {
							assert.True(t, f.InPortfolio)
							assert.GreaterOrEqual(t, rsi, 60.0)
						}
					}
				}
			}
		}
	}
}

func seedAndStep(t *testing.T, closes []float64, next float64) indicator.State {
	t.Helper()
	eng, err := indicator.NewEngine(indicator.DefaultConfig(), indicator.WithWarningHook(func(indicator.DivisionAmbiguityWarning) {}))
	require.NoError(t, err)

	ticks := make([]model.PriceTick, len(closes))
	for i, c := range closes {
		ticks[i] = model.PriceTick{Symbol: "AAPL", Timestamp: 1_700_000_000 + int64(i)*60, Close: c}
	}
	st, hist, err := eng.Seed(ticks)
	require.NoError(t, err)
	st, err = eng.Update(st, hist, model.PriceTick{Symbol: "AAPL", Timestamp: st.LastTimestamp + 60, Close: next})
	require.NoError(t, err)
	return st
}

func TestScenario_FlatThenDropGivesNoSignal(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	st := seedAndStep(t, closes, 90)
	require.InDelta(t, 0, st.RSI, 1e-12)
	require.Greater(t, st.MACDSignal, st.MACD)

	ev := newEvaluator(t, DefaultConfig())
	sig := ev.Evaluate(st, held(80, 1.05), quote(90, 89.9, 90.1))
	assert.Equal(t, RegimeBuyBias, sig.Regime)
	assert.Equal(t, ActionNoSignal, sig.Action)
}

func TestScenario_RallyThenDipSells(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	st := seedAndStep(t, closes, 157)
	require.InDelta(t, 86.6667, st.RSI, 1e-3)
	require.Greater(t, st.MACDSignal, st.MACD)

	ev := newEvaluator(t, DefaultConfig())
	sig := ev.Evaluate(st, held(100, 1.05), quote(157, 156.9, 157.1))
	assert.Equal(t, ActionSell, sig.Action)
	assert.Equal(t, RegimeSellBias, sig.Regime)

	sig = ev.Evaluate(st, model.PortfolioFact{ProfitMarginThreshold: 1.05}, quote(157, 156.9, 157.1))
	assert.Equal(t, ActionNoSignal, sig.Action)
}

func TestScenario_SelloffThenBounceBuys(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	st := seedAndStep(t, closes, 143)
	require.Less(t, st.RSI, 30.0)
	require.Less(t, st.MACDSignal, st.MACD)

	ev := newEvaluator(t, DefaultConfig())
	sig := ev.Evaluate(st, model.PortfolioFact{ProfitMarginThreshold: 1.05}, quote(143, 142.9, 143.1))
	assert.Equal(t, ActionBuy, sig.Action)
	assert.Equal(t, 143.1, sig.AskPrice)
}
