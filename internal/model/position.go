package model

// PortfolioFact holds what the account knows about one symbol.
// It is owned by the portfolio layer and only read by the decision engine.
type PortfolioFact struct {
	InPortfolio           bool    `json:"in_portfolio"`
	PurchasePrice         float64 `json:"purchase_price"`
	Quantity              int64   `json:"quantity"`                // order size
	ProfitMarginThreshold float64 `json:"profit_margin_threshold"` // e.g. 1.05 = sell at +5%
	Capital               float64 `json:"capital"`
}

// ProfitRatio returns current/purchase. ok is false when there is no
// usable purchase price.
func (f PortfolioFact) ProfitRatio(current float64) (ratio float64, ok bool) {
	if f.PurchasePrice <= 0 {
		return 0, false
	}
	return current / f.PurchasePrice, true
}
