package portfolio

import (
	"sync"
	"time"

	"ibrobot/internal/model"
)

// Trade represents a completed trade for P&L calculation.
type Trade struct {
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"` // BUY or SELL
	Qty       int64     `json:"qty"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeFromFill converts a fill into a Trade.
func TradeFromFill(f model.Fill) Trade {
	return Trade{Symbol: f.Symbol, Action: f.Side, Qty: f.Qty, Price: f.Price, Timestamp: f.FilledAt}
}

// PnLTracker tracks realized and unrealized P&L.
type PnLTracker struct {
	mu     sync.RWMutex
	trades []Trade

	realizedPnL float64
	wins        int
	losses      int

	costBasis map[string]costEntry
}

type costEntry struct {
	Qty      int64
	AvgPrice float64
}

// NewPnLTracker creates a new P&L tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{
		trades:    make([]Trade, 0, 500),
		costBasis: make(map[string]costEntry),
	}
}

// RecordTrade records a trade and returns the P&L it realized.
func (p *PnLTracker) RecordTrade(trade Trade) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = append(p.trades, trade)
	entry := p.costBasis[trade.Symbol]

	var realized float64

	if trade.Action == "BUY" {
		if entry.Qty == 0 {
			entry.Qty = trade.Qty
			entry.AvgPrice = trade.Price
		} else {
			totalCost := entry.AvgPrice*float64(entry.Qty) + trade.Price*float64(trade.Qty)
			entry.Qty += trade.Qty
			entry.AvgPrice = totalCost / float64(entry.Qty)
		}
	} else {
		sellQty := trade.Qty
		if sellQty > entry.Qty {
			sellQty = entry.Qty
		}
		realized = (trade.Price - entry.AvgPrice) * float64(sellQty)
		entry.Qty -= sellQty
		if entry.Qty <= 0 {
			entry.Qty = 0
			entry.AvgPrice = 0
		}
		p.realizedPnL += realized
		if sellQty > 0 {
			if realized > 0 {
				p.wins++
			} else {
				p.losses++
			}
		}
	}

	p.costBasis[trade.Symbol] = entry
	return realized
}

// GetRealizedPnL returns total realized P&L.
func (p *PnLTracker) GetRealizedPnL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realizedPnL
}

// GetTrades returns a snapshot of all trades.
func (p *PnLTracker) GetTrades() []Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Trade, len(p.trades))
	copy(cp, p.trades)
	return cp
}

// PnLSummary is a point-in-time P&L report.
type PnLSummary struct {
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
	TotalTrades   int     `json:"total_trades"`
	OpenPositions int     `json:"open_positions"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
}

// GetSummary returns the current P&L summary. currentPrices maps symbol to
// its latest price.
func (p *PnLTracker) GetSummary(currentPrices map[string]float64) PnLSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	unrealized := 0.0
	openPositions := 0
	for sym, entry := range p.costBasis {
		if entry.Qty <= 0 {
			continue
		}
		openPositions++
		if price, ok := currentPrices[sym]; ok {
			unrealized += (price - entry.AvgPrice) * float64(entry.Qty)
		}
	}

	return PnLSummary{
		RealizedPnL:   p.realizedPnL,
		UnrealizedPnL: unrealized,
		TotalPnL:      p.realizedPnL + unrealized,
		TotalTrades:   len(p.trades),
		OpenPositions: openPositions,
		Wins:          p.wins,
		Losses:        p.losses,
	}
}
