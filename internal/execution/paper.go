package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ibrobot/internal/model"
)

// PaperExecutor simulates order execution without real broker calls.
// Every order fills immediately at its limit price, adjusted by slippage.
type PaperExecutor struct {
	mu    sync.RWMutex
	fills []model.Fill

	slippageBps float64 // basis points, 5 = 0.05%
	now         func() time.Time
}

// NewPaperExecutor creates a paper trading executor.
// slippageBps controls simulated slippage in basis points.
func NewPaperExecutor(slippageBps float64) *PaperExecutor {
	return &PaperExecutor{
		fills:       make([]model.Fill, 0, 256),
		slippageBps: slippageBps,
		now:         time.Now,
	}
}

// WithClock overrides the fill timestamp source; the backtester fills at
// bar time.
func (p *PaperExecutor) WithClock(now func() time.Time) *PaperExecutor {
	p.now = now
	return p
}

// GetFills returns a snapshot of all fills.
func (p *PaperExecutor) GetFills() []model.Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]model.Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// Submit fills the order.
func (p *PaperExecutor) Submit(ctx context.Context, order model.Order) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, err
	}
	if order.Qty <= 0 || order.Price <= 0 {
		return OrderResult{Order: order, Status: StatusRejected, Message: "invalid qty or price"}, nil
	}

	price := order.Price
	slippage := price * p.slippageBps / 10000
	if order.Side == "BUY" {
		price += slippage
	} else {
		price -= slippage
	}

	fill := model.Fill{
		OrderID:  order.OrderID,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Qty:      order.Qty,
		Price:    price,
		FilledAt: p.now(),
	}
	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	log.Printf("[paper] %s %s qty=%d limit=%.2f fill=%.4f (slip=%.4f) order=%s",
		order.Side, order.Symbol, order.Qty, order.Price, price, slippage, order.OrderID)

	return OrderResult{
		Order:   order,
		Status:  StatusFilled,
		Message: fmt.Sprintf("paper filled at %.4f", price),
		Fill:    &fill,
	}, nil
}
