package strategy

import (
	"time"
)

// Exit reason codes recorded on sell trades.
const (
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
	ReasonMaxHold    = "max_hold"
	ReasonDump       = "dump_detected"
	ReasonShutdown   = "shutdown"
)

// ExitRules holds the exit thresholds from config.
// A zero value for any field means that rule is disabled.
type ExitRules struct {
	TakeProfitPercent float64
	StopLossPercent   float64
	MaxHold           time.Duration
}

// Decision is the outcome of evaluating a held position.
type Decision struct {
	Sell   bool
	Reason string
}

var hold = Decision{}

// Evaluate decides whether a position should be sold.
// entryPrice is the weighted average buy price, currentPrice the latest quote.
// recentPrices is the price history newest first, used for dump detection.
// Rules are checked in order: dump, stop loss, take profit, max hold.
func (r ExitRules) Evaluate(entryPrice, currentPrice float64, recentPrices []float64, heldFor time.Duration) Decision {
	if entryPrice <= 0 || currentPrice <= 0 {
		return hold
	}

	if detectDump(recentPrices) {
		return Decision{Sell: true, Reason: ReasonDump}
	}

	changePct := (currentPrice/entryPrice - 1) * 100

	if r.StopLossPercent > 0 && changePct <= -r.StopLossPercent {
		return Decision{Sell: true, Reason: ReasonStopLoss}
	}

	if r.TakeProfitPercent > 0 && changePct >= r.TakeProfitPercent {
		return Decision{Sell: true, Reason: ReasonTakeProfit}
	}

	if r.MaxHold > 0 && heldFor >= r.MaxHold {
		return Decision{Sell: true, Reason: ReasonMaxHold}
	}

	return hold
}

// detectDump compares the average of the 5 most recent prices against the
// average of the 5 before them. A drop of more than 30% between the two
// windows reads as a rug in progress.
func detectDump(recentPrices []float64) bool {
	if len(recentPrices) < 10 {
		return false
	}

	var recent, older float64
	for i := 0; i < 5; i++ {
		recent += recentPrices[i]
		older += recentPrices[i+5]
	}
	recent /= 5
	older /= 5

	if older <= 0 {
		return false
	}
	return (older-recent)/older > 0.30
}
