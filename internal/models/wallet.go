package models

import (
	"encoding/json"
	"time"
)

// BotState is the persisted bot snapshot. Exactly one row is active at a time.
type BotState struct {
	ID             int             `json:"id"`
	TradesExecuted int             `json:"tradesExecuted"`
	TotalProfitSOL float64         `json:"totalProfitSol"`
	LastScanRunID  *string         `json:"lastScanRunId,omitempty"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Paper wallet fields (NULL for live trading)
	PaperSOLBalance    *float64        `json:"paperSolBalance,omitempty"`
	PaperTokensJSON    json.RawMessage `json:"paperTokensJson,omitempty"`
	PaperTotalFeesSOL  *float64        `json:"paperTotalFeesSol,omitempty"`
	PaperTradesJSON    json.RawMessage `json:"paperTradesJson,omitempty"`
	PaperStartTime     *time.Time      `json:"paperStartTime,omitempty"`
	PaperInitialSOL    *float64        `json:"paperInitialSol,omitempty"`
}

// PaperWallet is the working snapshot handed to the paper executor.
type PaperWallet struct {
	SOLBalance   float64         `json:"solBalance"`
	Tokens       json.RawMessage `json:"tokens"` // mint -> quantity
	TotalFeesSOL float64         `json:"totalFeesSol"`
	Trades       json.RawMessage `json:"trades"`
	StartTime    *time.Time      `json:"startTime"`
	InitialSOL   float64         `json:"initialSol"`
}
