package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solatra/solatra-backend/internal/httputil"
)

const coingeckoPath = "/api/v3/simple/price?ids=solana&vs_currencies=usd"

type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

type CoinGeckoOptions struct {
	BaseURL string
}

func NewCoinGeckoClient(opts CoinGeckoOptions) *CoinGeckoClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.coingecko.com"
	}
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

func (c *CoinGeckoClient) GetSOLPrice(ctx context.Context) (float64, error) {
	url := c.baseURL + coingeckoPath
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	if data.Solana.USD <= 0 {
		return 0, fmt.Errorf("invalid price: %f", data.Solana.USD)
	}

	return data.Solana.USD, nil
}
