package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

type Trade struct {
	ID              int64           `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	TradingDay      string          `json:"tradingDay"`
	Mint            string          `json:"mint"`
	Symbol          string          `json:"symbol"`
	Side            string          `json:"side"` // "buy" or "sell"
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"` // SOL per token unit
	SOLValue        decimal.Decimal `json:"solValue"`
	TxSignature     *string         `json:"txSignature,omitempty"`
	IsPaperTrade    bool            `json:"isPaperTrade"`
	SlippagePercent *float64        `json:"slippagePercent,omitempty"`
	FeeSOL          *float64        `json:"feeSol,omitempty"`
	ExitReason      *string         `json:"exitReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type TradeStats struct {
	TotalTrades int64      `json:"totalTrades"`
	BuyCount    int64      `json:"buyCount"`
	SellCount   int64      `json:"sellCount"`
	TotalVolume *float64   `json:"totalVolume"`
	AvgPrice    *float64   `json:"avgPrice"`
	FirstTrade  *time.Time `json:"firstTrade"`
	LastTrade   *time.Time `json:"lastTrade"`
}
