package model

import "time"

// Order is a limit order intent derived from a signal.
type Order struct {
	OrderID    string    `json:"order_id"`
	Account    string    `json:"account"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`       // BUY, SELL
	OrderType  string    `json:"order_type"` // LMT
	TIF        string    `json:"tif"`        // GTC
	Qty        int64     `json:"qty"`
	Price      float64   `json:"price"`
	OutsideRTH bool      `json:"outside_rth"`
	CreatedAt  time.Time `json:"created_at"`
}

// Fill is a confirmed execution of an order.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"` // BUY, SELL
	Qty      int64     `json:"qty"`
	Price    float64   `json:"price"`
	FilledAt time.Time `json:"filled_at"`
}

// Notional returns qty*price.
func (f Fill) Notional() float64 { return float64(f.Qty) * f.Price }
