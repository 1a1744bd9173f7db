package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/config"
	"github.com/solatra/solatra-backend/internal/executor"
	"github.com/solatra/solatra-backend/internal/models"
	"github.com/solatra/solatra-backend/internal/notifications"
	"github.com/solatra/solatra-backend/internal/position"
	"github.com/solatra/solatra-backend/internal/repository"
	"github.com/solatra/solatra-backend/internal/risk"
	"github.com/solatra/solatra-backend/internal/strategy"
)

const (
	wrappedSOLMint = "So11111111111111111111111111111111111111112"

	// Fallback for mints whose on-chain decimals we never resolved.
	defaultTokenDecimals = 6

	// Dump detection window, newest first.
	priceHistoryDepth = 20
)

// PriceSource quotes current USD prices per mint.
type PriceSource interface {
	GetPrice(ctx context.Context, mint string) (float64, error)
}

type holding struct {
	symbol    string
	entryTime time.Time
	history   []float64 // newest first
}

// Trader watches approved candidates, enters positions through the
// executor and manages exits against the configured rules.
type Trader struct {
	cfg       *config.Config
	prices    PriceSource
	exec      executor.Executor
	paper     *executor.PaperExecutor // set in paper mode, for stats
	tradeRepo *repository.TradeRepo
	tokenRepo *repository.TokenRepo
	stateRepo *repository.StateRepo
	priceRepo *repository.PriceRepo
	positions *position.Service
	guardian  *risk.Guardian
	rules     strategy.ExitRules
	notify    *notifications.Sender
	log       *logrus.Logger

	// mu guards holdings and the trade counters. Entries can arrive from
	// the scan scheduler's goroutine while the run loop is mid-tick.
	mu               sync.Mutex
	holdings         map[string]*holding
	lastTradeAt      time.Time
	TradesExecuted   int
	TotalProfitSOL   float64
	PriceChecks      int
	LastStatusReport time.Time

	running bool
	stopCh  chan struct{}
}

func NewTrader(
	cfg *config.Config,
	prices PriceSource,
	exec executor.Executor,
	tradeRepo *repository.TradeRepo,
	tokenRepo *repository.TokenRepo,
	stateRepo *repository.StateRepo,
	priceRepo *repository.PriceRepo,
	positions *position.Service,
	notify *notifications.Sender,
	log *logrus.Logger,
) *Trader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Trader{
		cfg:       cfg,
		prices:    prices,
		exec:      exec,
		tradeRepo: tradeRepo,
		tokenRepo: tokenRepo,
		stateRepo: stateRepo,
		priceRepo: priceRepo,
		positions: positions,
		notify:    notify,
		log:       log,
		holdings:  make(map[string]*holding),
		stopCh:    make(chan struct{}),
		rules: strategy.ExitRules{
			TakeProfitPercent: cfg.TakeProfitPercent,
			StopLossPercent:   cfg.StopLossPercent,
			MaxHold:           time.Duration(cfg.MaxHoldMinutes) * time.Minute,
		},
		guardian: risk.NewGuardian(risk.Limits{
			MaxDailyTrades:             cfg.MaxDailyTrades,
			MaxPositionSizeSOL:         cfg.MaxPositionSizeSOL,
			MaxOpenPositions:           cfg.MaxOpenPositions,
			MinWalletSOL:               cfg.MinWalletSOL,
			PortfolioStopLossPercent:   cfg.PortfolioStopLossPercent,
			PortfolioTakeProfitPercent: cfg.PortfolioTakeProfitPercent,
		}, tradeRepo),
	}
	if pe, ok := exec.(*executor.PaperExecutor); ok {
		t.paper = pe
	}
	return t
}

func (t *Trader) Init(ctx context.Context) error {
	if err := t.loadState(ctx); err != nil {
		t.log.Warnf("[BOT] Failed to load state: %v", err)
	}

	if t.paper != nil {
		if err := t.paper.Init(ctx); err != nil {
			return fmt.Errorf("paper wallet init: %w", err)
		}
	}

	// Rebuild open holdings from the trade ledger so exits keep working
	// across restarts. Entry time falls back to the oldest open lot.
	paperMode := t.cfg.PaperTradingEnabled
	open, err := t.positions.OpenPositions(ctx, &paperMode)
	if err != nil {
		return fmt.Errorf("rebuild positions: %w", err)
	}
	for _, p := range open {
		t.setHolding(p.Mint, &holding{symbol: p.Symbol, entryTime: time.Now()})
	}
	if len(open) > 0 {
		t.log.Infof("[BOT] Rebuilt %d open positions from ledger", len(open))
	}
	return nil
}

// --- state management ---

func (t *Trader) loadState(ctx context.Context) error {
	state, err := t.stateRepo.GetActive(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		t.log.Info("[BOT] No existing state found in DB, starting fresh")
		_, err := t.stateRepo.Save(ctx, &models.BotState{})
		return err
	}
	t.mu.Lock()
	t.TradesExecuted = state.TradesExecuted
	t.TotalProfitSOL = state.TotalProfitSOL
	t.mu.Unlock()
	t.log.Infof("[BOT] Loaded state from DB: %d trades, %.4f SOL realized", state.TradesExecuted, state.TotalProfitSOL)
	return nil
}

func (t *Trader) saveState(ctx context.Context) {
	t.mu.Lock()
	trades, profit := t.TradesExecuted, t.TotalProfitSOL
	t.mu.Unlock()
	if err := t.stateRepo.UpdateTradeStats(ctx, trades, profit); err != nil {
		t.log.Warnf("[STATE] Failed to save state to DB: %v", err)
	}
}

// --- holdings bookkeeping ---

func (t *Trader) held(mint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.holdings[mint]
	return ok
}

func (t *Trader) setHolding(mint string, h *holding) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.holdings[mint] = h
}

func (t *Trader) removeHolding(mint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.holdings, mint)
}

func (t *Trader) holdingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.holdings)
}

// snapshotHoldings copies the map so callers can iterate without the
// lock. The holding structs themselves are only touched by the run loop.
func (t *Trader) snapshotHoldings() map[string]*holding {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := make(map[string]*holding, len(t.holdings))
	for mint, h := range t.holdings {
		snap[mint] = h
	}
	return snap
}

// --- pricing ---

// quoteSOL returns the token's price denominated in SOL, plus the SOL/USD
// rate used for the conversion.
func (t *Trader) quoteSOL(ctx context.Context, mint string) (priceSOL, solUSD float64, err error) {
	solUSD, err = t.prices.GetPrice(ctx, wrappedSOLMint)
	if err != nil {
		return 0, 0, fmt.Errorf("SOL price: %w", err)
	}
	tokenUSD, err := t.prices.GetPrice(ctx, mint)
	if err != nil {
		return 0, 0, fmt.Errorf("token price: %w", err)
	}
	if solUSD <= 0 {
		return 0, 0, fmt.Errorf("invalid SOL price %f", solUSD)
	}
	return tokenUSD / solUSD, solUSD, nil
}

// --- entries ---

// EnterCandidates buys every approved candidate that clears the risk checks.
func (t *Trader) EnterCandidates(ctx context.Context) {
	candidates, err := t.tokenRepo.GetApprovedUnbought(ctx)
	if err != nil {
		t.log.Warnf("[BOT] Failed to load candidates: %v", err)
		return
	}

	for _, c := range candidates {
		if t.held(c.Mint) {
			continue
		}
		if err := t.enter(ctx, c); err != nil {
			t.log.Warnf("[BOT] Entry skipped for %s: %v", c.Symbol, err)
		}
	}
}

func (t *Trader) enter(ctx context.Context, c models.TokenCandidate) error {
	if cooldown := time.Duration(t.cfg.PostTradeCooldownSeconds) * time.Second; cooldown > 0 {
		t.mu.Lock()
		since := time.Since(t.lastTradeAt)
		t.mu.Unlock()
		if since < cooldown {
			return fmt.Errorf("in post-trade cooldown for another %s", (cooldown - since).Round(time.Second))
		}
	}

	if err := t.guardian.PreTradeCheck(ctx, t.cfg.BuyAmountSOL, t.holdingCount()); err != nil {
		return err
	}

	if t.paper != nil {
		ps := t.paper.Stats()
		if ps.InitialSOL > 0 {
			pnlPct := (ps.CurrentSOL/ps.InitialSOL - 1) * 100
			if err := t.guardian.PortfolioCheck(pnlPct); err != nil {
				return err
			}
		}
	}

	balance, err := t.exec.BalanceSOL(ctx)
	if err != nil {
		return fmt.Errorf("balance check: %w", err)
	}
	if err := t.guardian.WalletCheck(balance, t.cfg.BuyAmountSOL); err != nil {
		return err
	}

	priceSOL, _, err := t.quoteSOL(ctx, c.Mint)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	fill, err := t.exec.ExecuteBuy(ctx, executor.Order{
		Mint:          c.Mint,
		Symbol:        c.Symbol,
		Side:          models.SideBuy,
		AmountSOL:     t.cfg.BuyAmountSOL,
		PriceSOL:      priceSOL,
		TokenDecimals: defaultTokenDecimals,
	})
	if err != nil {
		return fmt.Errorf("execute buy: %w", err)
	}

	t.recordTrade(ctx, c.Mint, c.Symbol, models.SideBuy, fill, nil)
	t.setHolding(c.Mint, &holding{symbol: c.Symbol, entryTime: time.Now()})

	if err := t.tokenRepo.MarkBought(ctx, c.Mint); err != nil {
		t.log.Warnf("[BOT] Failed to mark %s bought: %v", c.Mint, err)
	}

	t.notify.Send(fmt.Sprintf("BUY %s: %s tokens for %.4f SOL",
		c.Symbol, fill.TokenAmount.StringFixed(2), t.cfg.BuyAmountSOL))
	return nil
}

// --- exits ---

func (t *Trader) manageHolding(ctx context.Context, mint string, h *holding) {
	priceSOL, solUSD, err := t.quoteSOL(ctx, mint)
	if err != nil {
		t.log.Warnf("[BOT] No quote for %s, skipping: %v", h.symbol, err)
		return
	}

	// Record the USD price point for the API and keep the in-memory
	// window for dump detection.
	if _, err := t.priceRepo.Record(ctx, mint, priceSOL*solUSD, "birdeye", time.Now()); err != nil {
		t.log.Warnf("[BOT] Failed to record price for %s: %v", mint, err)
	}
	h.history = append([]float64{priceSOL}, h.history...)
	if len(h.history) > priceHistoryDepth {
		h.history = h.history[:priceHistoryDepth]
	}

	paperMode := t.cfg.PaperTradingEnabled
	pos, err := t.positions.TokenPosition(ctx, mint, &paperMode)
	if err != nil {
		t.log.Warnf("[BOT] Position lookup failed for %s: %v", h.symbol, err)
		return
	}
	if pos.Open == nil {
		// Ledger says nothing is held anymore.
		t.removeHolding(mint)
		return
	}

	entry, _ := pos.Open.WeightedAvgBuyPrice.Float64()
	decision := t.rules.Evaluate(entry, priceSOL, h.history, time.Since(h.entryTime))
	if !decision.Sell {
		return
	}

	t.log.Infof("[BOT] Exit %s: %s (entry %.10f, now %.10f)", h.symbol, decision.Reason, entry, priceSOL)
	if err := t.exit(ctx, mint, h, pos.Open.TotalOpenQuantity, priceSOL, decision.Reason); err != nil {
		t.log.Warnf("[BOT] Exit failed for %s: %v", h.symbol, err)
	}
}

func (t *Trader) exit(ctx context.Context, mint string, h *holding, qty decimal.Decimal, priceSOL float64, reason string) error {
	fill, err := t.exec.ExecuteSell(ctx, executor.Order{
		Mint:          mint,
		Symbol:        h.symbol,
		Side:          models.SideSell,
		TokenAmount:   qty,
		PriceSOL:      priceSOL,
		TokenDecimals: defaultTokenDecimals,
	})
	if err != nil {
		return err
	}

	t.recordTrade(ctx, mint, h.symbol, models.SideSell, fill, &reason)
	t.removeHolding(mint)

	// Refresh realized totals from the ledger.
	paperMode := t.cfg.PaperTradingEnabled
	if pos, err := t.positions.TokenPosition(ctx, mint, &paperMode); err == nil {
		realized, _ := pos.RealizedPLTotal.Float64()
		t.log.Infof("[BOT] %s closed: realized %.6f SOL over %d matches", h.symbol, realized, len(pos.Matches))
	}

	sol, _ := fill.SOLAmount.Float64()
	t.notify.Send(fmt.Sprintf("SELL %s (%s): %s tokens for %.4f SOL",
		h.symbol, reason, fill.TokenAmount.StringFixed(2), sol))
	return nil
}

// ExitAll closes every open holding, used during shutdown when configured.
func (t *Trader) ExitAll(ctx context.Context, reason string) {
	paperMode := t.cfg.PaperTradingEnabled
	for mint, h := range t.snapshotHoldings() {
		pos, err := t.positions.TokenPosition(ctx, mint, &paperMode)
		if err != nil || pos.Open == nil {
			t.removeHolding(mint)
			continue
		}
		priceSOL, _, err := t.quoteSOL(ctx, mint)
		if err != nil {
			t.log.Warnf("[BOT] No quote for %s during %s exit: %v", h.symbol, reason, err)
			continue
		}
		if err := t.exit(ctx, mint, h, pos.Open.TotalOpenQuantity, priceSOL, reason); err != nil {
			t.log.Warnf("[BOT] %s exit failed for %s: %v", reason, h.symbol, err)
		}
	}
}

// --- trade recording ---

func (t *Trader) recordTrade(ctx context.Context, mint, symbol, side string, fill *executor.Fill, exitReason *string) {
	trade := &models.Trade{
		Timestamp:    time.Now(),
		Mint:         mint,
		Symbol:       symbol,
		Side:         side,
		Quantity:     fill.TokenAmount,
		UnitPrice:    fill.PriceSOL,
		SOLValue:     fill.SOLAmount,
		TxSignature:  fill.TxSignature,
		IsPaperTrade: t.cfg.PaperTradingEnabled,
		ExitReason:   exitReason,
	}
	if fill.SlippagePct > 0 {
		s := fill.SlippagePct
		trade.SlippagePercent = &s
	}
	if fill.FeeSOL > 0 {
		f := fill.FeeSOL
		trade.FeeSOL = &f
	}

	if _, err := t.tradeRepo.Record(ctx, trade); err != nil {
		t.log.Errorf("[BOT] Failed to record %s trade for %s: %v", side, mint, err)
	}

	sol, _ := fill.SOLAmount.Float64()
	t.mu.Lock()
	t.lastTradeAt = time.Now()
	t.TradesExecuted++
	if side == models.SideSell {
		t.TotalProfitSOL += sol
	} else {
		t.TotalProfitSOL -= sol
	}
	t.mu.Unlock()
	t.saveState(ctx)
}

// --- main loop ---

func (t *Trader) Run(ctx context.Context) {
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()

	mode := "LIVE"
	if t.cfg.PaperTradingEnabled {
		mode = "PAPER"
	}
	t.notify.Send(fmt.Sprintf("Trader started in %s mode: buy %.4f SOL, TP %.1f%%, SL %.1f%%",
		mode, t.cfg.BuyAmountSOL, t.cfg.TakeProfitPercent, t.cfg.StopLossPercent))

	ticker := time.NewTicker(time.Duration(t.cfg.PriceCheckIntervalSeconds) * time.Second)
	defer ticker.Stop()

	// Do one immediate tick
	t.tick(ctx)

	for {
		select {
		case <-t.stopCh:
			t.notify.Send("Trader shutting down")
			return
		case <-ctx.Done():
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Trader) tick(ctx context.Context) {
	t.PriceChecks++

	for mint, h := range t.snapshotHoldings() {
		t.manageHolding(ctx, mint, h)
	}

	t.EnterCandidates(ctx)
	t.maybeReportStatus(ctx)
}

func (t *Trader) maybeReportStatus(ctx context.Context) {
	interval := time.Duration(t.cfg.StatusReportIntervalMinutes) * time.Minute
	if time.Since(t.LastStatusReport) < interval {
		return
	}

	balance, err := t.exec.BalanceSOL(ctx)
	if err != nil {
		t.log.Warnf("[BOT] Balance unavailable for status report: %v", err)
		return
	}

	prefix := ""
	if t.cfg.PaperTradingEnabled {
		prefix = "[PAPER] "
	}
	t.mu.Lock()
	open, trades, profit := len(t.holdings), t.TradesExecuted, t.TotalProfitSOL
	t.mu.Unlock()
	t.notify.Send(fmt.Sprintf("%sStatus: %.4f SOL | Open: %d | Checks: %d | Trades: %d | Net flow: %.4f SOL",
		prefix, balance, open, t.PriceChecks, trades, profit))

	if t.paper != nil {
		ps := t.paper.Stats()
		t.notify.Send(fmt.Sprintf("[PAPER P&L] Initial: %.4f SOL -> Current: %.4f SOL | Fees: %.6f SOL | Running: %.1fh",
			ps.InitialSOL, ps.CurrentSOL, ps.TotalFeesSOL, ps.RunningTimeHours))
	}

	t.LastStatusReport = time.Now()
}

// OpenHoldings returns the mints currently tracked as held.
func (t *Trader) OpenHoldings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	mints := make([]string, 0, len(t.holdings))
	for mint := range t.holdings {
		mints = append(mints, mint)
	}
	return mints
}

func (t *Trader) Shutdown() {
	t.mu.Lock()
	if t.running {
		t.running = false
		close(t.stopCh)
	}
	t.mu.Unlock()
	t.log.Info("[BOT] Shutting down gracefully")
}

func (t *Trader) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
