// Package pnl reconciles a per-token trade ledger into realized P&L and an
// open position using strict chronological FIFO lot matching.
package pnl

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is a single executed order for one token. Trades are immutable;
// the ledger they come from is append-only.
type Trade struct {
	TokenID   string          `json:"tokenId"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Timestamp time.Time       `json:"timestamp"`
}

// Lot is the unconsumed remainder of a single BUY trade. Lots only shrink.
type Lot struct {
	Remaining       decimal.Decimal `json:"remaining"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	OriginTimestamp time.Time       `json:"originTimestamp"`
}

// MatchResult records one SELL consuming part or all of one BUY lot.
// A SELL spanning several lots yields several results.
type MatchResult struct {
	TokenID           string          `json:"tokenId"`
	SellTimestamp     time.Time       `json:"sellTimestamp"`
	MatchedQuantity   decimal.Decimal `json:"matchedQuantity"`
	BuyUnitPrice      decimal.Decimal `json:"buyUnitPrice"`
	SellUnitPrice     decimal.Decimal `json:"sellUnitPrice"`
	RealizedPL        decimal.Decimal `json:"realizedPl"`
	RealizedPLPercent decimal.Decimal `json:"realizedPlPercent"`
}

// OpenPosition summarizes the BUY quantity left unconsumed after matching.
type OpenPosition struct {
	TokenID             string          `json:"tokenId"`
	TotalOpenQuantity   decimal.Decimal `json:"totalOpenQuantity"`
	WeightedAvgBuyPrice decimal.Decimal `json:"weightedAvgBuyPrice"`
}

var (
	ErrInvalidTrade  = errors.New("invalid trade")
	ErrTokenMismatch = errors.New("token mismatch")
)

var hundred = decimal.NewFromInt(100)

// ComputeTokenPnL matches SELL trades against BUY lots in strict chronological
// FIFO order and reports realized P&L per match plus the remaining open
// position. All trades must belong to tokenID; callers partition a mixed
// ledger before calling. The input order breaks timestamp ties, so the result
// is deterministic for a fixed input.
//
// An oversold ledger (cumulative SELL quantity exceeding cumulative BUY
// quantity at some point) is not an error: the unmatched residual produces no
// MatchResult and no synthetic cost basis. Callers that care compare the
// matched total against the total SELL quantity.
//
// The function is pure: it never mutates its input and holds no state between
// calls. The returned OpenPosition is nil when nothing remains open.
func ComputeTokenPnL(trades []Trade, tokenID string) ([]MatchResult, *OpenPosition, error) {
	// Validate everything up front so no partial result ever escapes.
	for i, t := range trades {
		if t.TokenID != tokenID {
			return nil, nil, fmt.Errorf("%w: trade %d has token %q, want %q", ErrTokenMismatch, i, t.TokenID, tokenID)
		}
		if !t.Quantity.IsPositive() {
			return nil, nil, fmt.Errorf("%w: trade %d has non-positive quantity %s", ErrInvalidTrade, i, t.Quantity)
		}
		if !t.UnitPrice.IsPositive() {
			return nil, nil, fmt.Errorf("%w: trade %d has non-positive unit price %s", ErrInvalidTrade, i, t.UnitPrice)
		}
		if t.Side != SideBuy && t.Side != SideSell {
			return nil, nil, fmt.Errorf("%w: trade %d has unknown side %q", ErrInvalidTrade, i, t.Side)
		}
	}

	// Stable sort keeps ingestion order for equal timestamps.
	ledger := make([]Trade, len(trades))
	copy(ledger, trades)
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].Timestamp.Before(ledger[j].Timestamp)
	})

	// Lots enter the queue only as their BUY is reached, so a SELL can
	// never consume inventory bought after it.
	var lots []Lot
	var matches []MatchResult
	head := 0

	for _, t := range ledger {
		if t.Side == SideBuy {
			lots = append(lots, Lot{
				Remaining:       t.Quantity,
				UnitPrice:       t.UnitPrice,
				OriginTimestamp: t.Timestamp,
			})
			continue
		}

		remaining := t.Quantity
		for remaining.IsPositive() && head < len(lots) {
			lot := &lots[head]
			if !lot.Remaining.IsPositive() {
				head++
				continue
			}

			matched := decimal.Min(remaining, lot.Remaining)
			matches = append(matches, newMatch(tokenID, t, lot.UnitPrice, matched))

			lot.Remaining = lot.Remaining.Sub(matched)
			remaining = remaining.Sub(matched)
			if lot.Remaining.IsZero() {
				head++
			}
		}
		// Oversold: any residual past this point stays unaccounted for.
	}

	open := openPosition(tokenID, lots[head:])
	return matches, open, nil
}

func newMatch(tokenID string, sell Trade, buyPrice, matched decimal.Decimal) MatchResult {
	return MatchResult{
		TokenID:           tokenID,
		SellTimestamp:     sell.Timestamp,
		MatchedQuantity:   matched,
		BuyUnitPrice:      buyPrice,
		SellUnitPrice:     sell.UnitPrice,
		RealizedPL:        sell.UnitPrice.Sub(buyPrice).Mul(matched),
		RealizedPLPercent: sell.UnitPrice.Div(buyPrice).Sub(decimal.NewFromInt(1)).Mul(hundred),
	}
}

func openPosition(tokenID string, lots []Lot) *OpenPosition {
	total := decimal.Zero
	cost := decimal.Zero
	for _, lot := range lots {
		if !lot.Remaining.IsPositive() {
			continue
		}
		total = total.Add(lot.Remaining)
		cost = cost.Add(lot.Remaining.Mul(lot.UnitPrice))
	}
	if total.IsZero() {
		return nil
	}
	return &OpenPosition{
		TokenID:             tokenID,
		TotalOpenQuantity:   total,
		WeightedAvgBuyPrice: cost.Div(total),
	}
}
