package risk

import (
	"context"
	"fmt"
)

// DailyTradeCounter abstracts the trade-counting dependency so Guardian
// can be tested without a real database.
type DailyTradeCounter interface {
	CountToday(ctx context.Context) (int, error)
}

// Limits holds the risk thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxDailyTrades     int
	MaxPositionSizeSOL float64
	MaxOpenPositions   int
	MinWalletSOL       float64

	// Portfolio-level circuit breakers, distinct from the per-position
	// exit rules in internal/strategy.
	PortfolioStopLossPercent   float64
	PortfolioTakeProfitPercent float64
}

type Guardian struct {
	limits  Limits
	counter DailyTradeCounter
}

func NewGuardian(limits Limits, counter DailyTradeCounter) *Guardian {
	return &Guardian{limits: limits, counter: counter}
}

// PreTradeCheck validates per-trade constraints before a buy executes.
// openPositions is the number of mints currently held.
// Returns nil if the trade is allowed, a descriptive error if blocked.
func (g *Guardian) PreTradeCheck(ctx context.Context, tradeSOLValue float64, openPositions int) error {
	if g.limits.MaxPositionSizeSOL > 0 && tradeSOLValue > g.limits.MaxPositionSizeSOL {
		return fmt.Errorf("trade blocked: position size %.4f SOL exceeds max %.4f SOL",
			tradeSOLValue, g.limits.MaxPositionSizeSOL)
	}

	if g.limits.MaxOpenPositions > 0 && openPositions >= g.limits.MaxOpenPositions {
		return fmt.Errorf("trade blocked: %d open positions at limit of %d",
			openPositions, g.limits.MaxOpenPositions)
	}

	if g.limits.MaxDailyTrades > 0 && g.counter != nil {
		count, err := g.counter.CountToday(ctx)
		if err != nil {
			return fmt.Errorf("trade blocked: unable to verify daily trade count: %w", err)
		}
		if count >= g.limits.MaxDailyTrades {
			return fmt.Errorf("trade blocked: daily limit of %d trades reached (%d executed today)",
				g.limits.MaxDailyTrades, count)
		}
	}

	return nil
}

// PortfolioCheck evaluates portfolio-level circuit breakers.
// pnlPercent is the portfolio P&L as a percentage (e.g. -8.5 means down 8.5%).
// Returns nil if trading should continue, a descriptive error if a breaker tripped.
func (g *Guardian) PortfolioCheck(pnlPercent float64) error {
	if g.limits.PortfolioStopLossPercent > 0 && pnlPercent <= -g.limits.PortfolioStopLossPercent {
		return fmt.Errorf("STOP-LOSS triggered: portfolio down %.2f%% (threshold: -%.2f%%)",
			pnlPercent, g.limits.PortfolioStopLossPercent)
	}

	if g.limits.PortfolioTakeProfitPercent > 0 && pnlPercent >= g.limits.PortfolioTakeProfitPercent {
		return fmt.Errorf("TAKE-PROFIT triggered: portfolio up %.2f%% (threshold: +%.2f%%)",
			pnlPercent, g.limits.PortfolioTakeProfitPercent)
	}

	return nil
}

// WalletCheck verifies the wallet keeps a minimum SOL reserve after spending
// tradeSOLValue. The reserve covers fees on the eventual exit swap.
func (g *Guardian) WalletCheck(balanceSOL, tradeSOLValue float64) error {
	if g.limits.MinWalletSOL <= 0 {
		return nil
	}
	if balanceSOL-tradeSOLValue < g.limits.MinWalletSOL {
		return fmt.Errorf("trade blocked: balance %.4f SOL minus trade %.4f SOL breaches reserve of %.4f SOL",
			balanceSOL, tradeSOLValue, g.limits.MinWalletSOL)
	}
	return nil
}
