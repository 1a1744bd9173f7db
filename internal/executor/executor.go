package executor

import (
	"context"

	"github.com/shopspring/decimal"
)

// Order is a swap request against a token mint. Buys spend AmountSOL,
// sells dispose of TokenAmount. PriceSOL is the latest quote in SOL per
// token, used by the paper executor to simulate the fill.
type Order struct {
	Mint          string
	Symbol        string
	Side          string
	AmountSOL     float64
	TokenAmount   decimal.Decimal
	PriceSOL      float64
	TokenDecimals int
}

// Fill is the result of an executed swap.
type Fill struct {
	TokenAmount decimal.Decimal
	SOLAmount   decimal.Decimal
	PriceSOL    decimal.Decimal
	SlippagePct float64
	FeeSOL      float64
	TxSignature *string
}

// Executor performs swaps. The paper implementation simulates fills against
// a persisted virtual wallet, the Jupiter implementation signs and submits
// real transactions.
type Executor interface {
	ExecuteBuy(ctx context.Context, order Order) (*Fill, error)
	ExecuteSell(ctx context.Context, order Order) (*Fill, error)
	BalanceSOL(ctx context.Context) (float64, error)
}
