package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/models"
)

const defaultPaperFeeSOL = 0.000105

// WalletStore abstracts paper wallet persistence so the executor
// can be tested without a real database.
type WalletStore interface {
	GetPaperWallet(ctx context.Context) (*models.PaperWallet, error)
	UpdatePaperWallet(ctx context.Context, pw *models.PaperWallet) error
	InitializePaperWallet(ctx context.Context, initialSOL float64) error
}

// PaperExecutor simulates swaps against a virtual SOL wallet with random
// slippage and flat network fees. State survives restarts via the store.
type PaperExecutor struct {
	store        WalletStore
	log          *logrus.Logger
	maxSlippage  float64
	simulateFees bool
	initialSOL   float64

	mu        sync.Mutex
	solBal    float64
	holdings  map[string]decimal.Decimal
	totalFees float64
	startTime time.Time
}

func NewPaperExecutor(store WalletStore, initialSOL, maxSlippagePct float64, simulateFees bool, log *logrus.Logger) *PaperExecutor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PaperExecutor{
		store:        store,
		log:          log,
		maxSlippage:  maxSlippagePct,
		simulateFees: simulateFees,
		initialSOL:   initialSOL,
		solBal:       initialSOL,
		holdings:     make(map[string]decimal.Decimal),
		startTime:    time.Now(),
	}
}

// Init loads persisted paper state, or seeds a fresh wallet.
func (p *PaperExecutor) Init(ctx context.Context) error {
	state, err := p.store.GetPaperWallet(ctx)
	if err != nil {
		return fmt.Errorf("load paper state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if state != nil && state.SOLBalance > 0 {
		p.solBal = state.SOLBalance
		p.totalFees = state.TotalFeesSOL
		p.initialSOL = state.InitialSOL
		if state.StartTime != nil {
			p.startTime = *state.StartTime
		}
		if state.Tokens != nil {
			var raw map[string]string
			if err := json.Unmarshal(state.Tokens, &raw); err == nil {
				for mint, qty := range raw {
					if d, err := decimal.NewFromString(qty); err == nil {
						p.holdings[mint] = d
					}
				}
			}
		}
		p.log.Infof("[PAPER] Loaded from DB: %.4f SOL, %d holdings", p.solBal, len(p.holdings))
		return nil
	}

	p.log.Infof("[PAPER] Starting fresh paper wallet: %.4f SOL", p.initialSOL)
	if err := p.store.InitializePaperWallet(ctx, p.initialSOL); err != nil {
		return fmt.Errorf("initialize paper wallet: %w", err)
	}
	return nil
}

func (p *PaperExecutor) ExecuteBuy(ctx context.Context, order Order) (*Fill, error) {
	if order.PriceSOL <= 0 {
		return nil, fmt.Errorf("paper buy needs a positive quote for %s", order.Mint)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fee := p.fee()
	cost := order.AmountSOL + fee
	if p.solBal < cost {
		return nil, fmt.Errorf("insufficient SOL: have %.4f, need %.4f", p.solBal, cost)
	}

	slip := randomSlippage(p.maxSlippage)
	execPrice := order.PriceSOL * (1 + slip/100)
	qty := decimal.NewFromFloat(order.AmountSOL).Div(decimal.NewFromFloat(execPrice))

	p.solBal -= cost
	p.totalFees += fee
	p.holdings[order.Mint] = p.holdings[order.Mint].Add(qty)
	p.save(ctx)

	p.log.Infof("[PAPER] BUY %s: %s tokens for %.4f SOL (slippage %.3f%%)",
		order.Symbol, qty.StringFixed(4), order.AmountSOL, slip)

	sig := paperSignature("BUY")
	return &Fill{
		TokenAmount: qty,
		SOLAmount:   decimal.NewFromFloat(order.AmountSOL),
		PriceSOL:    decimal.NewFromFloat(execPrice),
		SlippagePct: slip,
		FeeSOL:      fee,
		TxSignature: &sig,
	}, nil
}

func (p *PaperExecutor) ExecuteSell(ctx context.Context, order Order) (*Fill, error) {
	if order.PriceSOL <= 0 {
		return nil, fmt.Errorf("paper sell needs a positive quote for %s", order.Mint)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	held := p.holdings[order.Mint]
	qty := order.TokenAmount
	if qty.IsZero() || qty.GreaterThan(held) {
		qty = held
	}
	if qty.IsZero() {
		return nil, fmt.Errorf("no %s holdings to sell", order.Mint)
	}

	slip := randomSlippage(p.maxSlippage)
	execPrice := order.PriceSOL * (1 - slip/100)
	proceeds := qty.Mul(decimal.NewFromFloat(execPrice))

	fee := p.fee()
	solOut, _ := proceeds.Float64()

	p.solBal += solOut - fee
	p.totalFees += fee
	remaining := held.Sub(qty)
	if remaining.IsZero() {
		delete(p.holdings, order.Mint)
	} else {
		p.holdings[order.Mint] = remaining
	}
	p.save(ctx)

	p.log.Infof("[PAPER] SELL %s: %s tokens for %.4f SOL (slippage %.3f%%)",
		order.Symbol, qty.StringFixed(4), solOut, slip)

	sig := paperSignature("SELL")
	return &Fill{
		TokenAmount: qty,
		SOLAmount:   proceeds,
		PriceSOL:    decimal.NewFromFloat(execPrice),
		SlippagePct: slip,
		FeeSOL:      fee,
		TxSignature: &sig,
	}, nil
}

func (p *PaperExecutor) BalanceSOL(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.solBal, nil
}

// Holding returns the simulated quantity held for a mint.
func (p *PaperExecutor) Holding(mint string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings[mint]
}

// Stats summarizes the paper session.
type PaperStats struct {
	InitialSOL       float64
	CurrentSOL       float64
	TotalFeesSOL     float64
	OpenHoldings     int
	RunningTimeHours float64
}

func (p *PaperExecutor) Stats() PaperStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PaperStats{
		InitialSOL:       p.initialSOL,
		CurrentSOL:       p.solBal,
		TotalFeesSOL:     p.totalFees,
		OpenHoldings:     len(p.holdings),
		RunningTimeHours: time.Since(p.startTime).Hours(),
	}
}

// save persists the wallet. Caller holds the mutex.
func (p *PaperExecutor) save(ctx context.Context) {
	raw := make(map[string]string, len(p.holdings))
	for mint, qty := range p.holdings {
		raw[mint] = qty.String()
	}
	tokensJSON, _ := json.Marshal(raw)

	err := p.store.UpdatePaperWallet(ctx, &models.PaperWallet{
		SOLBalance:   p.solBal,
		Tokens:       tokensJSON,
		TotalFeesSOL: p.totalFees,
	})
	if err != nil {
		p.log.Warnf("[PAPER] Failed to save paper state: %v", err)
	}
}

func (p *PaperExecutor) fee() float64 {
	if p.simulateFees {
		return defaultPaperFeeSOL
	}
	return 0
}

// paperSignature fabricates a recognizable stand-in for a transaction
// signature so simulated trades are distinguishable in the trade log.
func paperSignature(side string) string {
	return fmt.Sprintf("PAPER_%s_%d", side, time.Now().UnixNano())
}

func randomSlippage(maxPct float64) float64 {
	if maxPct <= 0 {
		return 0
	}
	return rand.Float64() * maxPct
}
