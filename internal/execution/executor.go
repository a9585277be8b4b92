// Package execution turns BUY/SELL signals into limit orders and executes
// them. Broker connectivity lives outside this module; PaperExecutor fills
// orders locally for dry runs and backtests.
package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"ibrobot/internal/model"
	"ibrobot/internal/strategy"
)

var (
	ErrNotActionable = errors.New("signal is not actionable")
	ErrZeroQuantity  = errors.New("order quantity is zero")
	ErrNoPrice       = errors.New("no limit price")
)

// Order status values.
const (
	StatusFilled   = "FILLED"
	StatusRejected = "REJECTED"
)

// OrderResult represents the outcome of an order placement.
type OrderResult struct {
	Order   model.Order `json:"order"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Fill    *model.Fill `json:"fill,omitempty"`
}

// Filled reports whether the order produced a fill.
func (r OrderResult) Filled() bool { return r.Status == StatusFilled && r.Fill != nil }

// Executor places orders.
type Executor interface {
	Submit(ctx context.Context, order model.Order) (OrderResult, error)
}

// OrderSpec carries the account-level order settings.
type OrderSpec struct {
	Account    string
	OutsideRTH bool
}

// BuildOrder derives the limit order for an actionable signal. A BUY is
// priced at the ask and sized from the watchlist quantity, or from
// floor(capital/ask) when no quantity is configured. A SELL is priced at the
// bid and sized to the held quantity.
func BuildOrder(spec OrderSpec, sig strategy.Signal, facts model.PortfolioFact, heldQty int64, now time.Time) (model.Order, error) {
	if !sig.Action.Actionable() {
		return model.Order{}, fmt.Errorf("execution: %s: %w", sig.Symbol, ErrNotActionable)
	}

	var price float64
	var qty int64
	if sig.Action == strategy.ActionBuy {
		price = sig.AskPrice
		qty = facts.Quantity
		if qty <= 0 && price > 0 {
			qty = int64(math.Floor(facts.Capital / price))
		}
	} else {
		price = sig.BidPrice
		qty = heldQty
		if qty <= 0 {
			qty = facts.Quantity
		}
	}
	if price <= 0 {
		return model.Order{}, fmt.Errorf("execution: %s %s: %w", sig.Action, sig.Symbol, ErrNoPrice)
	}
	if qty <= 0 {
		return model.Order{}, fmt.Errorf("execution: %s %s: %w", sig.Action, sig.Symbol, ErrZeroQuantity)
	}

	return model.Order{
		OrderID:    uuid.NewString(),
		Account:    spec.Account,
		Symbol:     sig.Symbol,
		Side:       string(sig.Action),
		OrderType:  "LMT",
		TIF:        "GTC",
		Qty:        qty,
		Price:      price,
		OutsideRTH: spec.OutsideRTH,
		CreatedAt:  now,
	}, nil
}
