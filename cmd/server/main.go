package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solatra/solatra-backend/internal/api"
	"github.com/solatra/solatra-backend/internal/bot"
	"github.com/solatra/solatra-backend/internal/config"
	"github.com/solatra/solatra-backend/internal/db"
	"github.com/solatra/solatra-backend/internal/executor"
	"github.com/solatra/solatra-backend/internal/external"
	"github.com/solatra/solatra-backend/internal/models"
	"github.com/solatra/solatra-backend/internal/notifications"
	"github.com/solatra/solatra-backend/internal/position"
	"github.com/solatra/solatra-backend/internal/repository"
	"github.com/solatra/solatra-backend/internal/scheduler"
	"github.com/solatra/solatra-backend/internal/screen"
)

const banner = `
╔══════════════════════════════════════╗
║     SOLATRA Token Trading Bot        ║
║                                      ║
╚══════════════════════════════════════╝
`

const apiPort = 3001

func main() {
	fmt.Print(banner)

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	log.Infof("[DB] Connecting to %s:%d/%s ...", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Errorf("[DB] Connection failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		log.Info("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool, log); err != nil {
		log.Errorf("[DB] Test query failed: %v", err)
		os.Exit(1)
	}

	// Repos
	priceRepo := repository.NewPriceRepo(pool)
	tradeRepo := repository.NewTradeRepo(pool)
	tokenRepo := repository.NewTokenRepo(pool)
	stateRepo := repository.NewStateRepo(pool)

	// External clients (single instances shared by bot + scheduler)
	birdeye := external.NewBirdeyeClient(cfg.BirdeyeAPIKey, external.BirdeyeOptions{Logger: log})
	rugcheck := external.NewRugCheckClient(external.RugCheckOptions{Logger: log})
	solFeed := external.NewSOLPriceFeed(
		external.NewCoinGeckoClient(external.CoinGeckoOptions{}),
		external.NewBinanceClient(external.BinanceOptions{}),
		external.SOLPriceFeedOptions{Recorder: priceRepo, Logger: log},
	)
	oracle := external.NewPriceOracle(birdeye, solFeed)

	// Execution seam: paper wallet or live Jupiter swaps
	var exec executor.Executor
	if cfg.PaperTradingEnabled {
		exec = executor.NewPaperExecutor(stateRepo, cfg.PaperInitialSOL, cfg.PaperSlippagePercent, cfg.PaperSimulateFees, log)
	} else {
		jup, err := executor.NewJupiterExecutor(cfg.RPCEndpoint, cfg.PrivateKey, executor.JupiterOptions{
			SlippageBps:         cfg.SlippageBps,
			PriorityFeeLamports: uint64(cfg.PriorityFeeLamports),
			Logger:              log,
		})
		if err != nil {
			log.Errorf("[EXEC] Jupiter executor init failed: %v", err)
			os.Exit(1)
		}
		exec = jup
	}

	positions := position.NewService(tradeRepo, log)
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName, log)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	botService := bot.NewService(log)

	// 1. API server (reads bot diagnostics through the service)
	srv := api.NewServer(pool, apiPort, cfg.APIKey, cfg.CORSAllowOrigin, positions, botService, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("[API] Server error: %v", err)
			os.Exit(1)
		}
	}()

	// 2. Trading bot
	if err := botService.Start(ctx, cfg, oracle, exec, tradeRepo, tokenRepo, stateRepo, priceRepo, positions, notify); err != nil {
		log.Errorf("[BOT] Start failed: %v", err)
		os.Exit(1)
	}

	// 3. Token scan scheduler (shares the Birdeye client with the bot)
	screener := screen.NewScreener(screen.Thresholds{
		MaxRiskScore:    cfg.MaxRiskScore,
		MaxTopHolderPct: cfg.MaxTopHolderPct,
		MinLiquidityUSD: cfg.MinLiquidityUSD,
		MinVolume24hUSD: cfg.MinVolume24hUSD,
	}, cfg.MintBlacklist)

	scanSched := scheduler.NewScanScheduler(birdeye, rugcheck, screener, tokenRepo, scheduler.ScanConfig{
		Interval: time.Duration(cfg.ScanIntervalMinutes) * time.Minute,
		OnApproved: func(c models.TokenCandidate) {
			botService.EnterNow(ctx)
		},
		Logger: log,
	})
	scanSched.Start()

	log.Info("All services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	scanSched.Stop()
	botService.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[API] Shutdown error: %v", err)
	}
	log.Info("[API] Server closed")
	log.Info("Shutdown complete")
}
