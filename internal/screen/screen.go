package screen

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solatra/solatra-backend/internal/external"
)

// Thresholds holds the screening limits from config.
// A zero value for any field means that check is disabled.
type Thresholds struct {
	MaxRiskScore    int
	MaxTopHolderPct float64
	MinLiquidityUSD float64
	MinVolume24hUSD float64
}

// Candidate bundles everything the screener needs to judge one token.
type Candidate struct {
	Mint         string
	Volume24hUSD float64
	Report       *external.TokenReport
}

type Screener struct {
	thresholds Thresholds
	blacklist  map[string]bool
}

func NewScreener(thresholds Thresholds, blacklist []string) *Screener {
	bl := make(map[string]bool, len(blacklist))
	for _, m := range blacklist {
		bl[m] = true
	}
	return &Screener{thresholds: thresholds, blacklist: bl}
}

// Evaluate judges a candidate against the blacklist, mint validity, safety
// report and market thresholds. A non-empty reason means rejection; checks run
// in order and the first failure wins.
func (s *Screener) Evaluate(c Candidate) (approved bool, reason string) {
	if s.blacklist[c.Mint] {
		return false, "mint is blacklisted"
	}

	if _, err := solana.PublicKeyFromBase58(c.Mint); err != nil {
		return false, fmt.Sprintf("invalid mint address: %v", err)
	}

	if c.Report == nil {
		return false, "no safety report available"
	}

	if c.Report.HasDangerRisk() {
		return false, "report flags a danger-level risk"
	}

	for _, h := range c.Report.TopHolders {
		if s.blacklist[h.Address] {
			return false, fmt.Sprintf("top holder %s is blacklisted", h.Address)
		}
	}

	if s.thresholds.MaxRiskScore > 0 && c.Report.Score > s.thresholds.MaxRiskScore {
		return false, fmt.Sprintf("risk score %d exceeds max %d",
			c.Report.Score, s.thresholds.MaxRiskScore)
	}

	if s.thresholds.MaxTopHolderPct > 0 {
		if pct := c.Report.MaxHolderPct(); pct > s.thresholds.MaxTopHolderPct {
			return false, fmt.Sprintf("top holder owns %.1f%%, max is %.1f%%",
				pct, s.thresholds.MaxTopHolderPct)
		}
	}

	if s.thresholds.MinLiquidityUSD > 0 {
		if liq := c.Report.TotalLiquidityUSD(); liq < s.thresholds.MinLiquidityUSD {
			return false, fmt.Sprintf("liquidity $%.0f below min $%.0f",
				liq, s.thresholds.MinLiquidityUSD)
		}
	}

	if s.thresholds.MinVolume24hUSD > 0 && c.Volume24hUSD < s.thresholds.MinVolume24hUSD {
		return false, fmt.Sprintf("24h volume $%.0f below min $%.0f",
			c.Volume24hUSD, s.thresholds.MinVolume24hUSD)
	}

	return true, ""
}
