package position

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solatra/solatra-backend/internal/models"
)

const (
	mintA = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	mintB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type mockLedger struct {
	trades map[string][]models.Trade
	err    error
}

func (m *mockLedger) ListMints(_ context.Context, _ *bool) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var mints []string
	for mint := range m.trades {
		mints = append(mints, mint)
	}
	return mints, nil
}

func (m *mockLedger) ListByMint(_ context.Context, mint string, _ *bool) ([]models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.trades[mint], nil
}

func mkTrade(mint, side, qty, price string, minuteOffset int) models.Trade {
	return models.Trade{
		Mint:      mint,
		Side:      side,
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
		Symbol:    "TKN",
		Timestamp: time.Date(2025, 6, 1, 12, minuteOffset, 0, 0, time.UTC),
	}
}

func TestTokenPosition_RealizedAndOpen(t *testing.T) {
	ledger := &mockLedger{trades: map[string][]models.Trade{
		mintA: {
			mkTrade(mintA, "buy", "100", "1", 0),
			mkTrade(mintA, "buy", "50", "2", 1),
			mkTrade(mintA, "sell", "100", "3", 2),
		},
	}}
	svc := NewService(ledger, nil)

	pos, err := svc.TokenPosition(context.Background(), mintA, nil)
	if err != nil {
		t.Fatalf("TokenPosition: %v", err)
	}

	if len(pos.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(pos.Matches))
	}
	// Sold 100 of the first lot at 3 against cost 1: realized 200.
	if !pos.RealizedPLTotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("realized total mismatch: got %s", pos.RealizedPLTotal)
	}
	if pos.Open == nil {
		t.Fatal("expected open position for remaining lot")
	}
	if !pos.Open.TotalOpenQuantity.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("open quantity mismatch: got %s", pos.Open.TotalOpenQuantity)
	}
	if pos.Symbol != "TKN" {
		t.Fatalf("symbol mismatch: got %s", pos.Symbol)
	}
	if pos.TradeCount != 3 {
		t.Fatalf("trade count mismatch: got %d", pos.TradeCount)
	}
}

func TestTokenPosition_EmptyLedger(t *testing.T) {
	svc := NewService(&mockLedger{trades: map[string][]models.Trade{}}, nil)
	pos, err := svc.TokenPosition(context.Background(), mintA, nil)
	if err != nil {
		t.Fatalf("TokenPosition: %v", err)
	}
	if len(pos.Matches) != 0 || pos.Open != nil {
		t.Fatalf("expected empty position, got %+v", pos)
	}
	if !pos.RealizedPLTotal.IsZero() {
		t.Fatalf("expected zero realized total, got %s", pos.RealizedPLTotal)
	}
}

func TestAllPositions_MultipleMints(t *testing.T) {
	ledger := &mockLedger{trades: map[string][]models.Trade{
		mintA: {
			mkTrade(mintA, "buy", "10", "1", 0),
			mkTrade(mintA, "sell", "10", "2", 1),
		},
		mintB: {
			mkTrade(mintB, "buy", "5", "4", 0),
		},
	}}
	svc := NewService(ledger, nil)

	positions, err := svc.AllPositions(context.Background(), nil)
	if err != nil {
		t.Fatalf("AllPositions: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}

	// Sorted by mint: mintB (E...) before mintA (J...).
	if positions[0].Mint != mintB || positions[1].Mint != mintA {
		t.Fatalf("unexpected order: %s, %s", positions[0].Mint, positions[1].Mint)
	}
	if positions[0].Open == nil {
		t.Fatal("expected mintB to hold an open position")
	}
	if positions[1].Open != nil {
		t.Fatal("expected mintA to be fully closed")
	}
	if !positions[1].RealizedPLTotal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("mintA realized mismatch: got %s", positions[1].RealizedPLTotal)
	}
}

func TestAllPositions_EmptyLedger(t *testing.T) {
	svc := NewService(&mockLedger{trades: map[string][]models.Trade{}}, nil)
	positions, err := svc.AllPositions(context.Background(), nil)
	if err != nil {
		t.Fatalf("AllPositions: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("expected no positions, got %d", len(positions))
	}
}

func TestAllPositions_PropagatesError(t *testing.T) {
	svc := NewService(&mockLedger{err: fmt.Errorf("db down")}, nil)
	_, err := svc.AllPositions(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error from ledger")
	}
	t.Logf("Propagated: %v", err)
}

func TestOpenPositions_FiltersClosed(t *testing.T) {
	ledger := &mockLedger{trades: map[string][]models.Trade{
		mintA: {
			mkTrade(mintA, "buy", "10", "1", 0),
			mkTrade(mintA, "sell", "10", "2", 1),
		},
		mintB: {
			mkTrade(mintB, "buy", "5", "4", 0),
		},
	}}
	svc := NewService(ledger, nil)

	open, err := svc.OpenPositions(context.Background(), nil)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(open))
	}
	if open[0].Mint != mintB {
		t.Fatalf("expected %s open, got %s", mintB, open[0].Mint)
	}
}

func TestTokenPosition_OversoldResidualIgnored(t *testing.T) {
	ledger := &mockLedger{trades: map[string][]models.Trade{
		mintA: {
			mkTrade(mintA, "buy", "10", "1", 0),
			mkTrade(mintA, "sell", "15", "2", 1),
		},
	}}
	svc := NewService(ledger, nil)

	pos, err := svc.TokenPosition(context.Background(), mintA, nil)
	if err != nil {
		t.Fatalf("TokenPosition: %v", err)
	}
	if len(pos.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(pos.Matches))
	}
	if !pos.Matches[0].MatchedQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("matched quantity mismatch: got %s", pos.Matches[0].MatchedQuantity)
	}
	if pos.Open != nil {
		t.Fatal("oversold ledger should have no open position")
	}
	if !pos.OversoldQuantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("oversold quantity mismatch: got %s", pos.OversoldQuantity)
	}
}

func TestTokenPosition_NoOversoldOnBalancedLedger(t *testing.T) {
	ledger := &mockLedger{trades: map[string][]models.Trade{
		mintA: {
			mkTrade(mintA, "buy", "10", "1", 0),
			mkTrade(mintA, "sell", "6", "2", 1),
		},
	}}
	svc := NewService(ledger, nil)

	pos, err := svc.TokenPosition(context.Background(), mintA, nil)
	if err != nil {
		t.Fatalf("TokenPosition: %v", err)
	}
	if !pos.OversoldQuantity.IsZero() {
		t.Fatalf("expected zero oversold, got %s", pos.OversoldQuantity)
	}
}

func TestSummary(t *testing.T) {
	ledger := &mockLedger{trades: map[string][]models.Trade{
		mintA: {
			mkTrade(mintA, "buy", "10", "1", 0),
			mkTrade(mintA, "sell", "10", "2", 1),
		},
		mintB: {
			mkTrade(mintB, "buy", "5", "4", 0),
			mkTrade(mintB, "sell", "8", "5", 1),
		},
	}}
	svc := NewService(ledger, nil)

	sum, err := svc.Summary(context.Background(), nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Tokens != 2 {
		t.Fatalf("expected 2 tokens, got %d", sum.Tokens)
	}
	if sum.OpenTokens != 0 {
		t.Fatalf("expected no open tokens, got %d", sum.OpenTokens)
	}
	if sum.OversoldTokens != 1 {
		t.Fatalf("expected 1 oversold token, got %d", sum.OversoldTokens)
	}
	// mintA realized 10, mintB realized 5 on the matched portion.
	if !sum.RealizedPLTotal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("realized total mismatch: got %s", sum.RealizedPLTotal)
	}
}

func TestSummary_EmptyLedger(t *testing.T) {
	svc := NewService(&mockLedger{trades: map[string][]models.Trade{}}, nil)
	sum, err := svc.Summary(context.Background(), nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Tokens != 0 || !sum.RealizedPLTotal.IsZero() {
		t.Fatalf("expected empty summary, got %+v", sum)
	}
}
