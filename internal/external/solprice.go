package external

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/models"
)

// WrappedSOLMint is the wrapped SOL token mint on mainnet.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// PriceRecorder persists reference price points as they are observed.
type PriceRecorder interface {
	Record(ctx context.Context, mint string, price float64, source string, ts time.Time) (*models.PricePoint, error)
}

// SOLPriceFeed serves the SOL/USD reference price from CoinGecko with a
// Binance fallback. Fresh quotes are cached and optionally persisted
// under the reference mint.
type SOLPriceFeed struct {
	gecko    *CoinGeckoClient
	binance  *BinanceClient
	recorder PriceRecorder
	log      *logrus.Logger

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
	ttl       time.Duration
}

type SOLPriceFeedOptions struct {
	CacheTTL time.Duration
	Recorder PriceRecorder
	Logger   *logrus.Logger
}

func NewSOLPriceFeed(gecko *CoinGeckoClient, binance *BinanceClient, opts SOLPriceFeedOptions) *SOLPriceFeed {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SOLPriceFeed{
		gecko:    gecko,
		binance:  binance,
		recorder: opts.Recorder,
		log:      log,
		ttl:      ttl,
	}
}

func (f *SOLPriceFeed) GetSOLPrice(ctx context.Context) (float64, error) {
	f.mu.Lock()
	if f.cached > 0 && time.Since(f.fetchedAt) < f.ttl {
		price := f.cached
		f.mu.Unlock()
		return price, nil
	}
	f.mu.Unlock()

	price, source, err := f.fetch(ctx)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.cached = price
	f.fetchedAt = time.Now()
	f.mu.Unlock()

	if f.recorder != nil {
		if _, err := f.recorder.Record(ctx, models.ReferenceMint, price, source, time.Now()); err != nil {
			f.log.Warnf("[SOLPRICE] Failed to record reference price: %v", err)
		}
	}
	return price, nil
}

func (f *SOLPriceFeed) fetch(ctx context.Context) (float64, string, error) {
	price, geckoErr := f.gecko.GetSOLPrice(ctx)
	if geckoErr == nil {
		return price, "coingecko", nil
	}
	f.log.Warnf("[SOLPRICE] CoinGecko failed, trying Binance: %v", geckoErr)

	price, binanceErr := f.binance.GetSOLPrice(ctx)
	if binanceErr == nil {
		return price, "binance", nil
	}
	return 0, "", fmt.Errorf("all SOL price sources failed: coingecko: %v, binance: %v", geckoErr, binanceErr)
}

// PriceOracle routes per-mint price lookups: wrapped SOL goes to the
// reference feed, everything else to Birdeye.
type PriceOracle struct {
	birdeye *BirdeyeClient
	sol     *SOLPriceFeed
}

func NewPriceOracle(birdeye *BirdeyeClient, sol *SOLPriceFeed) *PriceOracle {
	return &PriceOracle{birdeye: birdeye, sol: sol}
}

func (o *PriceOracle) GetPrice(ctx context.Context, mint string) (float64, error) {
	if mint == WrappedSOLMint || mint == models.ReferenceMint {
		return o.sol.GetSOLPrice(ctx)
	}
	return o.birdeye.GetPrice(ctx, mint)
}
