package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/httputil"
)

type BirdeyeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        *logrus.Logger

	mu         sync.Mutex
	priceCache map[string]cachedPrice
	cacheTTL   time.Duration
}

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// TrendingToken is one entry from the Birdeye trending list.
type TrendingToken struct {
	Address      string  `json:"address"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Liquidity    float64 `json:"liquidity"`
	Volume24hUSD float64 `json:"volume24hUSD"`
}

type BirdeyeOptions struct {
	BaseURL  string
	CacheTTL time.Duration
	Logger   *logrus.Logger
}

func NewBirdeyeClient(apiKey string, opts BirdeyeOptions) *BirdeyeClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://public-api.birdeye.so"
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &BirdeyeClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		priceCache: make(map[string]cachedPrice),
		cacheTTL:   ttl,
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Logger:      log,
		},
	}
}

// GetTrendingTokens fetches the current trending token list.
func (b *BirdeyeClient) GetTrendingTokens(ctx context.Context, limit int) ([]TrendingToken, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("birdeye API key not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	url := fmt.Sprintf("%s/defi/token_trending?sort_by=rank&sort_type=asc&offset=0&limit=%d", b.baseURL, limit)
	resp, err := httputil.Do(ctx, b.httpClient, b.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		b.setHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("birdeye trending fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("birdeye returned status %d", resp.StatusCode)
	}

	var data struct {
		Success bool `json:"success"`
		Data    struct {
			Tokens []TrendingToken `json:"tokens"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if !data.Success {
		return nil, fmt.Errorf("birdeye trending request unsuccessful")
	}

	b.log.Infof("[BIRDEYE] Fetched %d trending tokens", len(data.Data.Tokens))
	return data.Data.Tokens, nil
}

// GetPrice returns the current USD price for a mint. Results are cached
// briefly so tight polling loops don't burn through the API quota.
func (b *BirdeyeClient) GetPrice(ctx context.Context, mint string) (float64, error) {
	b.mu.Lock()
	if c, ok := b.priceCache[mint]; ok && time.Since(c.fetchedAt) < b.cacheTTL {
		b.mu.Unlock()
		return c.price, nil
	}
	b.mu.Unlock()

	url := fmt.Sprintf("%s/defi/price?address=%s", b.baseURL, mint)
	resp, err := httputil.Do(ctx, b.httpClient, b.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		b.setHeaders(req)
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("birdeye price fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("birdeye returned status %d", resp.StatusCode)
	}

	var data struct {
		Success bool `json:"success"`
		Data    struct {
			Value float64 `json:"value"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if !data.Success || data.Data.Value <= 0 {
		return 0, fmt.Errorf("invalid price for %s: %f", mint, data.Data.Value)
	}

	b.mu.Lock()
	b.priceCache[mint] = cachedPrice{price: data.Data.Value, fetchedAt: time.Now()}
	b.mu.Unlock()

	return data.Data.Value, nil
}

func (b *BirdeyeClient) setHeaders(req *http.Request) {
	req.Header.Set("X-API-KEY", b.apiKey)
	req.Header.Set("x-chain", "solana")
	req.Header.Set("Accept", "application/json")
}
