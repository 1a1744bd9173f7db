package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/httputil"
)

type RugCheckClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        *logrus.Logger
}

// TokenReport is the RugCheck safety report for a mint.
type TokenReport struct {
	Mint       string    `json:"mint"`
	Score      int       `json:"score"`
	TokenMeta  TokenMeta `json:"tokenMeta"`
	Risks      []Risk    `json:"risks"`
	TopHolders []Holder  `json:"topHolders"`
	Markets    []Market  `json:"markets"`
}

type TokenMeta struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type Risk struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Holder struct {
	Address string  `json:"address"`
	Pct     float64 `json:"pct"`
}

type Market struct {
	LP LPPool `json:"lp"`
}

type LPPool struct {
	BaseUSD  float64 `json:"baseUSD"`
	QuoteUSD float64 `json:"quoteUSD"`
}

// MaxHolderPct returns the largest single holder percentage in the report.
func (r *TokenReport) MaxHolderPct() float64 {
	var max float64
	for _, h := range r.TopHolders {
		if h.Pct > max {
			max = h.Pct
		}
	}
	return max
}

// TotalLiquidityUSD sums LP value across the report's markets.
func (r *TokenReport) TotalLiquidityUSD() float64 {
	var total float64
	for _, m := range r.Markets {
		total += m.LP.BaseUSD + m.LP.QuoteUSD
	}
	return total
}

// HasDangerRisk reports whether any listed risk is flagged at danger level.
func (r *TokenReport) HasDangerRisk() bool {
	for _, risk := range r.Risks {
		if risk.Level == "danger" {
			return true
		}
	}
	return false
}

type RugCheckOptions struct {
	BaseURL string
	Logger  *logrus.Logger
}

func NewRugCheckClient(opts RugCheckOptions) *RugCheckClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.rugcheck.xyz/v1"
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &RugCheckClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		log:        log,
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Logger:      log,
		},
	}
}

// GetReport fetches the safety report for a mint.
func (c *RugCheckClient) GetReport(ctx context.Context, mint string) (*TokenReport, error) {
	url := fmt.Sprintf("%s/tokens/%s/report", c.baseURL, mint)
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("rugcheck fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no rugcheck report for %s", mint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rugcheck returned status %d", resp.StatusCode)
	}

	var report TokenReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	report.Mint = mint

	c.log.Debugf("[RUGCHECK] %s score=%d holders=%d markets=%d",
		mint, report.Score, len(report.TopHolders), len(report.Markets))
	return &report, nil
}
