package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	BirdeyeAPIKey   string
	HeliusAPIKey    string
	WalletAddress   string
	PrivateKey      string
	WebhookURL      string
	BotName         string
	APIKey          string
	CORSAllowOrigin string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Solana
	RPCEndpoint string

	// Token Screening
	MaxRiskScore    int
	MaxTopHolderPct float64
	MinLiquidityUSD float64
	MinVolume24hUSD float64
	MintBlacklist   []string

	// Risk Management
	MaxDailyTrades             int
	MaxPositionSizeSOL         float64
	MaxOpenPositions           int
	MinWalletSOL               float64
	PortfolioStopLossPercent   float64
	PortfolioTakeProfitPercent float64

	// Exit Rules
	StopLossPercent   float64
	TakeProfitPercent float64
	MaxHoldMinutes    int

	// Paper Trading
	PaperTradingEnabled  bool
	PaperInitialSOL      float64
	PaperSlippagePercent float64
	PaperSimulateFees    bool

	// Trading Parameters
	BuyAmountSOL        float64
	SlippageBps         int
	PriorityFeeLamports int

	// Timing
	PriceCheckIntervalSeconds   int
	ScanIntervalMinutes         int
	StatusReportIntervalMinutes int
	PostTradeCooldownSeconds    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		BirdeyeAPIKey:   envStr("BIRDEYE_API_KEY", ""),
		HeliusAPIKey:    envStr("HELIUS_API_KEY", ""),
		WalletAddress:   envStr("WALLET_ADDRESS", ""),
		PrivateKey:      envStr("PRIVATE_KEY", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "SolatraTrader"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "solatra_trader"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Solana
		RPCEndpoint: envStr("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),

		// Token Screening
		MaxRiskScore:    envInt("MAX_RISK_SCORE", 2000),
		MaxTopHolderPct: envFloat("MAX_TOP_HOLDER_PCT", 25),
		MinLiquidityUSD: envFloat("MIN_LIQUIDITY_USD", 10000),
		MinVolume24hUSD: envFloat("MIN_VOLUME_24H_USD", 50000),
		MintBlacklist:   envList("MINT_BLACKLIST"),

		// Risk Management
		MaxDailyTrades:             envInt("MAX_DAILY_TRADES", 50),
		MaxPositionSizeSOL:         envFloat("MAX_POSITION_SIZE_SOL", 1.0),
		MaxOpenPositions:           envInt("MAX_OPEN_POSITIONS", 5),
		MinWalletSOL:               envFloat("MIN_WALLET_SOL", 0.05),
		PortfolioStopLossPercent:   envFloat("PORTFOLIO_STOP_LOSS_PERCENT", 0),
		PortfolioTakeProfitPercent: envFloat("PORTFOLIO_TAKE_PROFIT_PERCENT", 0),

		// Exit Rules
		StopLossPercent:   envFloat("STOP_LOSS_PERCENT", 20),
		TakeProfitPercent: envFloat("TAKE_PROFIT_PERCENT", 50),
		MaxHoldMinutes:    envInt("MAX_HOLD_MINUTES", 0),

		// Paper Trading
		PaperTradingEnabled:  envBool("PAPER_TRADING_ENABLED", true),
		PaperInitialSOL:      envFloat("PAPER_INITIAL_SOL", 10),
		PaperSlippagePercent: envFloat("PAPER_SLIPPAGE_PERCENT", 0.5),
		PaperSimulateFees:    envBool("PAPER_SIMULATE_FEES", true),

		// Trading Parameters
		BuyAmountSOL:        envFloat("BUY_AMOUNT_SOL", 0.1),
		SlippageBps:         envInt("SLIPPAGE_BPS", 250),
		PriorityFeeLamports: envInt("PRIORITY_FEE_LAMPORTS", 100000),

		// Timing
		PriceCheckIntervalSeconds:   envInt("PRICE_CHECK_INTERVAL_SECONDS", 15),
		ScanIntervalMinutes:         envInt("SCAN_INTERVAL_MINUTES", 10),
		StatusReportIntervalMinutes: envInt("STATUS_REPORT_INTERVAL_MINUTES", 60),
		PostTradeCooldownSeconds:    envInt("POST_TRADE_COOLDOWN_SECONDS", 30),
	}

	// A Helius key implies its RPC unless an endpoint was set explicitly.
	if cfg.HeliusAPIKey != "" && os.Getenv("RPC_ENDPOINT") == "" {
		cfg.RPCEndpoint = "https://mainnet.helius-rpc.com/?api-key=" + cfg.HeliusAPIKey
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if !c.PaperTradingEnabled && c.PrivateKey == "" {
		errs = append(errs, "PRIVATE_KEY is required for live trading")
	}
	if !c.PaperTradingEnabled && c.WalletAddress == "" {
		errs = append(errs, "WALLET_ADDRESS is required for live trading")
	}
	if c.BuyAmountSOL <= 0 {
		errs = append(errs, "BUY_AMOUNT_SOL must be positive")
	}
	if c.BirdeyeAPIKey == "" {
		fmt.Println("[WARN] BIRDEYE_API_KEY not set — token discovery will be skipped")
	}
	if c.StopLossPercent == 0 && c.TakeProfitPercent == 0 {
		fmt.Println("[WARN] STOP_LOSS_PERCENT and TAKE_PROFIT_PERCENT are both 0 — no exit rules active")
	}
	if c.MaxDailyTrades == 0 && c.MaxPositionSizeSOL == 0 {
		fmt.Println("[WARN] MAX_DAILY_TRADES and MAX_POSITION_SIZE_SOL are both 0 — no per-trade limits active")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set — REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Solana Token Trading Bot Configuration ===")

	if c.PaperTradingEnabled {
		fmt.Println("════════════════════════════════════════")
		fmt.Println("  PAPER TRADING MODE ENABLED")
		fmt.Println("  No real transactions will execute")
		fmt.Println("════════════════════════════════════════")
		fmt.Printf("Paper Initial SOL: %.4f\n", c.PaperInitialSOL)
		fmt.Printf("Paper Slippage: 0-%.1f%%\n", c.PaperSlippagePercent)
		fmt.Printf("Paper Fee Simulation: %v\n", c.PaperSimulateFees)
	} else {
		fmt.Println("  LIVE TRADING MODE")
	}

	fmt.Println("--------------------------------------")
	fmt.Printf("RPC Endpoint: %s\n", c.RPCEndpoint)
	if len(c.WalletAddress) > 16 {
		fmt.Printf("Wallet: %s...%s\n", c.WalletAddress[:10], c.WalletAddress[len(c.WalletAddress)-6:])
	}
	fmt.Printf("Buy Amount: %.4f SOL, slippage %d bps\n", c.BuyAmountSOL, c.SlippageBps)
	fmt.Println("--------------------------------------")
	fmt.Println("Screening Configuration:")
	fmt.Printf("  Max Risk Score: %d\n", c.MaxRiskScore)
	fmt.Printf("  Max Top Holder: %.1f%%\n", c.MaxTopHolderPct)
	fmt.Printf("  Min Liquidity: $%.0f\n", c.MinLiquidityUSD)
	fmt.Printf("  Min 24h Volume: $%.0f\n", c.MinVolume24hUSD)
	fmt.Println("--------------------------------------")
	fmt.Println("Exit Rules:")
	fmt.Printf("  Stop Loss: %.1f%%\n", c.StopLossPercent)
	fmt.Printf("  Take Profit: %.1f%%\n", c.TakeProfitPercent)
	if c.MaxHoldMinutes > 0 {
		fmt.Printf("  Max Hold: %d minutes\n", c.MaxHoldMinutes)
	}
	if c.PortfolioStopLossPercent > 0 || c.PortfolioTakeProfitPercent > 0 {
		fmt.Printf("  Portfolio Breakers: -%.1f%% / +%.1f%%\n",
			c.PortfolioStopLossPercent, c.PortfolioTakeProfitPercent)
	}
	fmt.Printf("  Birdeye API: %s\n", boolLabel(c.BirdeyeAPIKey != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
