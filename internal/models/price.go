package models

import "time"

// PricePoint is one observed price for a mint. The SOL/USD reference price
// is stored under the special mint "SOL".
type PricePoint struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Mint       string    `json:"mint"`
	Price      float64   `json:"price"`
	TradingDay string    `json:"tradingDay"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
}

const ReferenceMint = "SOL"
