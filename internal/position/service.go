package position

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/models"
	"github.com/solatra/solatra-backend/internal/pnl"
)

// TradeSource abstracts the trade ledger so the service can be
// tested without a real database.
type TradeSource interface {
	ListMints(ctx context.Context, paperMode *bool) ([]string, error)
	ListByMint(ctx context.Context, mint string, paperMode *bool) ([]models.Trade, error)
}

// TokenPosition is the reconciled view of one mint: every realized match
// plus whatever is still open.
type TokenPosition struct {
	Mint            string            `json:"mint"`
	Symbol          string            `json:"symbol"`
	Matches         []pnl.MatchResult `json:"matches"`
	Open            *pnl.OpenPosition `json:"open,omitempty"`
	RealizedPLTotal decimal.Decimal   `json:"realizedPlTotal"`
	// OversoldQuantity is the portion of SELL volume the matcher could not
	// pair with any buy lot. Non-zero values flag a data-quality problem.
	OversoldQuantity decimal.Decimal `json:"oversoldQuantity"`
	TradeCount       int             `json:"tradeCount"`
}

// PortfolioSummary aggregates every reconciled position into one view.
type PortfolioSummary struct {
	Tokens          int             `json:"tokens"`
	OpenTokens      int             `json:"openTokens"`
	OversoldTokens  int             `json:"oversoldTokens"`
	RealizedPLTotal decimal.Decimal `json:"realizedPlTotal"`
}

type Service struct {
	trades TradeSource
	log    *logrus.Logger
}

func NewService(trades TradeSource, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{trades: trades, log: log}
}

// TokenPosition reconciles the full ledger for one mint.
func (s *Service) TokenPosition(ctx context.Context, mint string, paperMode *bool) (*TokenPosition, error) {
	trades, err := s.trades.ListByMint(ctx, mint, paperMode)
	if err != nil {
		return nil, fmt.Errorf("load trades for %s: %w", mint, err)
	}
	return buildPosition(mint, trades)
}

// AllPositions reconciles every mint in the ledger. Each mint's ledger is
// independent, so the P&L computations fan out concurrently.
func (s *Service) AllPositions(ctx context.Context, paperMode *bool) ([]TokenPosition, error) {
	mints, err := s.trades.ListMints(ctx, paperMode)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}
	if len(mints) == 0 {
		return nil, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		out      []TokenPosition
		firstErr error
	)

	for _, mint := range mints {
		wg.Add(1)
		go func(mint string) {
			defer wg.Done()

			pos, err := s.TokenPosition(ctx, mint, paperMode)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out = append(out, *pos)
		}(mint)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Mint < out[j].Mint })
	return out, nil
}

// OpenPositions returns only the mints still holding inventory.
func (s *Service) OpenPositions(ctx context.Context, paperMode *bool) ([]TokenPosition, error) {
	all, err := s.AllPositions(ctx, paperMode)
	if err != nil {
		return nil, err
	}
	open := all[:0:0]
	for _, p := range all {
		if p.Open != nil {
			open = append(open, p)
		}
	}
	return open, nil
}

// Summary collapses the whole portfolio into aggregate counts and P&L.
func (s *Service) Summary(ctx context.Context, paperMode *bool) (*PortfolioSummary, error) {
	all, err := s.AllPositions(ctx, paperMode)
	if err != nil {
		return nil, err
	}

	sum := &PortfolioSummary{RealizedPLTotal: decimal.Zero}
	for _, p := range all {
		sum.Tokens++
		if p.Open != nil {
			sum.OpenTokens++
		}
		if p.OversoldQuantity.IsPositive() {
			sum.OversoldTokens++
		}
		sum.RealizedPLTotal = sum.RealizedPLTotal.Add(p.RealizedPLTotal)
	}
	return sum, nil
}

func buildPosition(mint string, trades []models.Trade) (*TokenPosition, error) {
	ledger := make([]pnl.Trade, 0, len(trades))
	symbol := ""
	for _, t := range trades {
		if symbol == "" {
			symbol = t.Symbol
		}
		ledger = append(ledger, pnl.Trade{
			TokenID:   t.Mint,
			Side:      pnl.Side(t.Side),
			Quantity:  t.Quantity,
			UnitPrice: t.UnitPrice,
			Timestamp: t.Timestamp,
		})
	}

	matches, open, err := pnl.ComputeTokenPnL(ledger, mint)
	if err != nil {
		return nil, fmt.Errorf("compute pnl for %s: %w", mint, err)
	}

	total := decimal.Zero
	matched := decimal.Zero
	for _, m := range matches {
		total = total.Add(m.RealizedPL)
		matched = matched.Add(m.MatchedQuantity)
	}

	sold := decimal.Zero
	for _, t := range ledger {
		if t.Side == pnl.SideSell {
			sold = sold.Add(t.Quantity)
		}
	}

	return &TokenPosition{
		Mint:             mint,
		Symbol:           symbol,
		Matches:          matches,
		Open:             open,
		RealizedPLTotal:  total,
		OversoldQuantity: sold.Sub(matched),
		TradeCount:       len(trades),
	}, nil
}
