// Package portfolio commits fills into the robot's per-symbol facts and
// tracks open positions, P&L and risk limits.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"ibrobot/internal/model"
)

var (
	ErrAlreadyHolding = errors.New("already holding")
	ErrNotHolding     = errors.New("not holding")
	ErrInvalidFill    = errors.New("invalid fill")
)

// ApplyFill returns the facts after fill. A BUY opens the position at the
// fill price; a SELL closes it and clears the purchase price. Order size,
// margin threshold and capital carry over.
func ApplyFill(f model.PortfolioFact, fill model.Fill) (model.PortfolioFact, error) {
	if fill.Qty <= 0 || fill.Price <= 0 {
		return f, fmt.Errorf("portfolio: %s: qty=%d price=%g: %w", fill.Symbol, fill.Qty, fill.Price, ErrInvalidFill)
	}
	switch fill.Side {
	case "BUY":
		if f.InPortfolio {
			return f, fmt.Errorf("portfolio: %s: %w", fill.Symbol, ErrAlreadyHolding)
		}
		f.InPortfolio = true
		f.PurchasePrice = fill.Price
	case "SELL":
		if !f.InPortfolio {
			return f, fmt.Errorf("portfolio: %s: %w", fill.Symbol, ErrNotHolding)
		}
		f.InPortfolio = false
		f.PurchasePrice = 0
	default:
		return f, fmt.Errorf("portfolio: %s: side %q: %w", fill.Symbol, fill.Side, ErrInvalidFill)
	}
	return f, nil
}

// Position is a single long holding.
type Position struct {
	Symbol    string  `json:"symbol"`
	Qty       int64   `json:"qty"`
	AvgPrice  float64 `json:"avg_price"`
	LastPrice float64 `json:"last_price"`
}

// UnrealizedPnL returns (last - avg) * qty.
func (p *Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.AvgPrice) * float64(p.Qty)
}

// MarketValue returns last * qty.
func (p *Position) MarketValue() float64 {
	return p.LastPrice * float64(p.Qty)
}

// Portfolio tracks all open positions.
type Portfolio struct {
	mu        sync.RWMutex
	positions map[string]*Position
}

// New creates a new empty Portfolio.
func New() *Portfolio {
	return &Portfolio{
		positions: make(map[string]*Position),
	}
}

// Open records an existing holding, used when restoring from a checkpoint.
func (pf *Portfolio) Open(symbol string, qty int64, price float64) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.positions[symbol] = &Position{Symbol: symbol, Qty: qty, AvgPrice: price, LastPrice: price}
}

// Apply updates positions with a fill.
func (pf *Portfolio) Apply(fill model.Fill) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	pos, ok := pf.positions[fill.Symbol]
	switch fill.Side {
	case "BUY":
		if !ok {
			pf.positions[fill.Symbol] = &Position{Symbol: fill.Symbol, Qty: fill.Qty, AvgPrice: fill.Price, LastPrice: fill.Price}
			return
		}
		total := pos.AvgPrice*float64(pos.Qty) + fill.Notional()
		pos.Qty += fill.Qty
		pos.AvgPrice = total / float64(pos.Qty)
		pos.LastPrice = fill.Price
	case "SELL":
		if !ok {
			return
		}
		pos.Qty -= fill.Qty
		pos.LastPrice = fill.Price
		if pos.Qty <= 0 {
			delete(pf.positions, fill.Symbol)
		}
	}
}

// UpdatePrice updates the last traded price for a position.
func (pf *Portfolio) UpdatePrice(q model.Quote) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pos, ok := pf.positions[q.Symbol]; ok {
		pos.LastPrice = q.Last
	}
}

// Has reports whether symbol is held.
func (pf *Portfolio) Has(symbol string) bool {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	_, ok := pf.positions[symbol]
	return ok
}

// GetPositions returns a snapshot of all positions sorted by symbol.
func (pf *Portfolio) GetPositions() []Position {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	result := make([]Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result
}

// TotalUnrealizedPnL returns the total unrealized P&L across all positions.
func (pf *Portfolio) TotalUnrealizedPnL() float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	var total float64
	for _, p := range pf.positions {
		total += p.UnrealizedPnL()
	}
	return total
}

// Exposure returns the market value of all positions.
func (pf *Portfolio) Exposure() float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	var total float64
	for _, p := range pf.positions {
		total += p.MarketValue()
	}
	return total
}
