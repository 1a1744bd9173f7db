package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/config"
	"github.com/solatra/solatra-backend/internal/executor"
	"github.com/solatra/solatra-backend/internal/notifications"
	"github.com/solatra/solatra-backend/internal/position"
	"github.com/solatra/solatra-backend/internal/repository"
)

type Service struct {
	mu     sync.Mutex
	trader *Trader
	log    *logrus.Logger
}

func NewService(log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{log: log}
}

func (s *Service) Start(ctx context.Context, cfg *config.Config,
	prices PriceSource,
	exec executor.Executor,
	tradeRepo *repository.TradeRepo,
	tokenRepo *repository.TokenRepo,
	stateRepo *repository.StateRepo,
	priceRepo *repository.PriceRepo,
	positions *position.Service,
	notify *notifications.Sender,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trader != nil && s.trader.IsRunning() {
		s.log.Info("[BOT] Already running")
		return nil
	}

	mode := "LIVE MODE"
	if cfg.PaperTradingEnabled {
		mode = "PAPER MODE"
	}
	notify.Send(fmt.Sprintf("Starting Solana token trader - %s", mode))

	t := NewTrader(cfg, prices, exec, tradeRepo, tokenRepo, stateRepo, priceRepo, positions, notify, s.log)
	if err := t.Init(ctx); err != nil {
		return fmt.Errorf("trader init: %w", err)
	}
	s.trader = t

	s.log.Info("[BOT] Trader initialized, state loaded from database")

	go func() {
		t.Run(ctx)
		s.log.Info("[BOT] Run loop exited")
	}()

	s.log.Info("[BOT] Started successfully")
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trader != nil {
		s.trader.Shutdown()
		s.trader = nil
	}
	s.log.Info("[BOT] Stopped")
}

// EnterNow triggers a candidate sweep outside the normal tick,
// called by the scan scheduler when a fresh token is approved.
func (s *Service) EnterNow(ctx context.Context) {
	s.mu.Lock()
	t := s.trader
	s.mu.Unlock()

	if t == nil {
		return
	}
	t.EnterCandidates(ctx)
}

// OpenHoldings lists the mints the trader currently holds, for diagnostics.
func (s *Service) OpenHoldings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trader == nil {
		return nil
	}
	return s.trader.OpenHoldings()
}
