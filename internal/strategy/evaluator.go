package strategy

import (
	"fmt"

	"github.com/google/uuid"

	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
)

// IDFunc generates signal identifiers.
type IDFunc func() string

// Evaluator applies the decision rules. It is stateless apart from its
// configuration and safe for concurrent use.
type Evaluator struct {
	cfg   Config
	newID IDFunc
}

// NewEvaluator validates cfg. A nil idFn uses random UUIDs.
func NewEvaluator(cfg Config, idFn IDFunc) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if idFn == nil {
		idFn = uuid.NewString
	}
	return &Evaluator{cfg: cfg, newID: idFn}, nil
}

// Config returns the evaluator thresholds.
func (e *Evaluator) Config() Config { return e.cfg }

// Regime classifies an RSI value.
func (e *Evaluator) Regime(rsi float64) Regime {
	switch {
	case rsi <= e.cfg.RSIBuyThreshold:
		return RegimeBuyBias
	case rsi >= e.cfg.RSISellThreshold:
		return RegimeSellBias
	default:
		return RegimeNeutral
	}
}

// Evaluate decides on one tick. The decision depends only on its arguments;
// apart from the generated ID, equal inputs give equal signals.
func (e *Evaluator) Evaluate(st indicator.State, facts model.PortfolioFact, quote model.Quote) Signal {
	sig := fromState(st)
	sig.ID = e.newID()
	sig.CurrentPrice = quote.Last
	sig.BidPrice = quote.Bid
	sig.AskPrice = quote.Ask
	sig.PurchasePrice = facts.PurchasePrice
	sig.InPortfolio = facts.InPortfolio
	sig.Regime = e.Regime(st.RSI)
	sig.Action, sig.Reason = e.decide(sig.Regime, st, facts, quote)
	return sig
}

func (e *Evaluator) decide(regime Regime, st indicator.State, facts model.PortfolioFact, quote model.Quote) (Action, string) {
	confirmBuy := st.MACDSignal < st.MACD
	confirmSell := st.MACDSignal > st.MACD

	switch regime {
	case RegimeBuyBias:
		if !confirmBuy {
			return ActionNoSignal, fmt.Sprintf("rsi %.2f oversold, macd not confirming", st.RSI)
		}
		if facts.InPortfolio {
			return ActionNoSignal, "buy conditions met, already in portfolio"
		}
		return ActionBuy, fmt.Sprintf("rsi %.2f <= %.0f and macd above signal", st.RSI, e.cfg.RSIBuyThreshold)

	case RegimeSellBias:
		if !confirmSell {
			return ActionNoSignal, fmt.Sprintf("rsi %.2f overbought, macd not confirming", st.RSI)
		}
		if !facts.InPortfolio {
			return ActionNoSignal, "sell conditions met, not in portfolio"
		}
		if !e.cfg.SkipProfitCheck {
			ratio, ok := facts.ProfitRatio(quote.Last)
			if !ok {
				return ActionNoSignal, "no purchase price on record"
			}
			if ratio < facts.ProfitMarginThreshold {
				return ActionNoSignal, fmt.Sprintf("profit ratio %.4f below %.4f", ratio, facts.ProfitMarginThreshold)
			}
			if quote.Bid < facts.PurchasePrice {
				return ActionNoSignal, fmt.Sprintf("bid %.2f below purchase %.2f", quote.Bid, facts.PurchasePrice)
			}
		}
		return ActionSell, fmt.Sprintf("rsi %.2f >= %.0f and macd below signal", st.RSI, e.cfg.RSISellThreshold)
	}
	return ActionNoSignal, "rsi neutral"
}
