package model

// Instrument is one watchlist entry: what to trade and how much of it.
type Instrument struct {
	Symbol       string  `json:"symbol" yaml:"symbol"`
	Capital      float64 `json:"capital" yaml:"capital"`
	Quantity     int64   `json:"quantity" yaml:"quantity"`
	ProfitMargin float64 `json:"profit_margin" yaml:"profit_margin"`
}

// Facts returns the initial out-of-market PortfolioFact for this instrument.
func (i Instrument) Facts() PortfolioFact {
	return PortfolioFact{
		Quantity:              i.Quantity,
		ProfitMarginThreshold: i.ProfitMargin,
		Capital:               i.Capital,
	}
}
