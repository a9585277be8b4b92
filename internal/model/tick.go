package model

import "time"

// PriceTick is one timestamped close observation for a symbol.
// Timestamps are epoch seconds and must be non-decreasing per symbol.
type PriceTick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

// Time returns the tick timestamp as UTC time.
func (t PriceTick) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// Quote is a single polling-cycle snapshot of a symbol's top of book.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"` // epoch seconds
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
}

// Tick returns the PriceTick the indicator engine consumes for this quote.
func (q Quote) Tick() PriceTick {
	return PriceTick{Symbol: q.Symbol, Timestamp: q.Timestamp, Close: q.Last}
}
