package models

import "time"

// TokenCandidate is a discovered token together with its screening verdict.
type TokenCandidate struct {
	ID           int64     `json:"id"`
	Mint         string    `json:"mint"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	RiskScore    float64   `json:"riskScore"`
	TopHolderPct float64   `json:"topHolderPct"`
	LiquidityUSD float64   `json:"liquidityUsd"`
	Volume24hUSD float64   `json:"volume24hUsd"`
	PriceUSD     *float64  `json:"priceUsd,omitempty"`
	Approved     bool      `json:"approved"`
	RejectReason *string   `json:"rejectReason,omitempty"`
	ScanRunID    string    `json:"scanRunId"`
	Source       string    `json:"source"`
	Bought       bool      `json:"bought"`
	DiscoveredAt time.Time `json:"discoveredAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
