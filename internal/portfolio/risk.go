package portfolio

import (
	"log"
	"sync"
)

// RiskLimits defines configurable risk management thresholds.
// Zero disables a limit.
type RiskLimits struct {
	MaxOpenPositions int     `json:"max_open_positions"`
	MaxPositionSize  int64   `json:"max_position_size"` // shares per order
	MaxExposure      float64 `json:"max_exposure"`      // market value of all positions
	MaxDailyLoss     float64 `json:"max_daily_loss"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"` // 0-100
}

// DefaultRiskLimits returns conservative default limits.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxOpenPositions: 10,
		MaxPositionSize:  1000,
		MaxExposure:      100000,
		MaxDailyLoss:     2000,
		MaxDrawdownPct:   10,
	}
}

// RiskManager gates new positions against the limits and tracks equity.
// Closing orders are never blocked.
type RiskManager struct {
	mu        sync.RWMutex
	limits    RiskLimits
	portfolio *Portfolio

	dailyPnL   float64
	equity     float64
	peakEquity float64
}

// NewRiskManager creates a RiskManager with the given limits, portfolio, and starting equity.
func NewRiskManager(limits RiskLimits, pf *Portfolio, initialEquity float64) *RiskManager {
	return &RiskManager{
		limits:     limits,
		portfolio:  pf,
		equity:     initialEquity,
		peakEquity: initialEquity,
	}
}

// CanOpen checks whether buying qty of symbol at price would violate a limit.
// Returns false with a reason when it would.
func (rm *RiskManager) CanOpen(symbol string, qty int64, price float64) (bool, string) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	l := rm.limits
	if qty <= 0 {
		return false, "non-positive quantity"
	}
	if l.MaxOpenPositions > 0 && !rm.portfolio.Has(symbol) && len(rm.portfolio.GetPositions()) >= l.MaxOpenPositions {
		return false, "max open positions reached"
	}
	if l.MaxPositionSize > 0 && qty > l.MaxPositionSize {
		return false, "position size exceeds limit"
	}
	if l.MaxExposure > 0 && rm.portfolio.Exposure()+float64(qty)*price > l.MaxExposure {
		return false, "max exposure exceeded"
	}
	if l.MaxDailyLoss > 0 && rm.dailyPnL < -l.MaxDailyLoss {
		return false, "max daily loss reached"
	}
	if l.MaxDrawdownPct > 0 && rm.peakEquity > 0 {
		drawdown := (rm.peakEquity - rm.equity) / rm.peakEquity * 100
		if drawdown > l.MaxDrawdownPct {
			return false, "max drawdown exceeded"
		}
	}
	return true, ""
}

// RecordPnL updates daily P&L and equity tracking.
func (rm *RiskManager) RecordPnL(pnl float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.dailyPnL += pnl
	rm.equity += pnl
	if rm.equity > rm.peakEquity {
		rm.peakEquity = rm.equity
	}

	log.Printf("[risk] daily P&L: %.2f, equity: %.2f, peak: %.2f", rm.dailyPnL, rm.equity, rm.peakEquity)
}

// ResetDaily resets the daily P&L counter (call at market open).
func (rm *RiskManager) ResetDaily() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.dailyPnL = 0
}

// RiskStatus is a point-in-time view of the risk counters.
type RiskStatus struct {
	DailyPnL    float64    `json:"daily_pnl"`
	Equity      float64    `json:"equity"`
	PeakEquity  float64    `json:"peak_equity"`
	DrawdownPct float64    `json:"drawdown_pct"`
	Limits      RiskLimits `json:"limits"`
}

// GetStatus returns current risk status.
func (rm *RiskManager) GetStatus() RiskStatus {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	drawdown := 0.0
	if rm.peakEquity > 0 {
		drawdown = (rm.peakEquity - rm.equity) / rm.peakEquity * 100
	}
	return RiskStatus{
		DailyPnL:    rm.dailyPnL,
		Equity:      rm.equity,
		PeakEquity:  rm.peakEquity,
		DrawdownPct: drawdown,
		Limits:      rm.limits,
	}
}
