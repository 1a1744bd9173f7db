package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/solatra/solatra-backend/internal/httputil"
)

const binancePath = "/api/v3/ticker/price?symbol=SOLUSDT"

type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

type BinanceOptions struct {
	BaseURL string
}

func NewBinanceClient(opts BinanceOptions) *BinanceClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

func (c *BinanceClient) GetSOLPrice(ctx context.Context) (float64, error) {
	url := c.baseURL + binancePath
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("binance fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("binance returned status %d", resp.StatusCode)
	}

	var data struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	price, err := strconv.ParseFloat(data.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", data.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("invalid price: %f", price)
	}

	return price, nil
}
