package external_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/external"
	"github.com/solatra/solatra-backend/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestBirdeyeGetTrendingTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"success":true,"data":{"tokens":[
			{"address":"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN","name":"Jupiter","symbol":"JUP","price":0.0000071,"liquidity":250000,"volume24hUSD":1200000},
			{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","name":"USD Coin","symbol":"USDC","price":1.0,"liquidity":9000000,"volume24hUSD":50000000}
		]}}`))
	}))
	defer srv.Close()

	client := external.NewBirdeyeClient("test-key", external.BirdeyeOptions{
		BaseURL: srv.URL,
		Logger:  quietLogger(),
	})

	tokens, err := client.GetTrendingTokens(context.Background(), 20)
	if err != nil {
		t.Fatalf("GetTrendingTokens: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].Symbol != "JUP" {
		t.Fatalf("symbol mismatch: got %s", tokens[0].Symbol)
	}
	if tokens[0].Liquidity != 250000 {
		t.Fatalf("liquidity mismatch: got %f", tokens[0].Liquidity)
	}
	t.Logf("Trending: %d tokens, first=%s", len(tokens), tokens[0].Symbol)
}

func TestBirdeyeGetTrendingTokensNoKey(t *testing.T) {
	client := external.NewBirdeyeClient("", external.BirdeyeOptions{Logger: quietLogger()})
	_, err := client.GetTrendingTokens(context.Background(), 20)
	if err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestBirdeyeGetPriceCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true,"data":{"value":0.0000425}}`))
	}))
	defer srv.Close()

	client := external.NewBirdeyeClient("test-key", external.BirdeyeOptions{
		BaseURL:  srv.URL,
		CacheTTL: 1 * time.Minute,
		Logger:   quietLogger(),
	})

	mint := "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	p1, err := client.GetPrice(context.Background(), mint)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if p1 != 0.0000425 {
		t.Fatalf("price mismatch: got %f", p1)
	}

	p2, err := client.GetPrice(context.Background(), mint)
	if err != nil {
		t.Fatalf("cached GetPrice: %v", err)
	}
	if p2 != p1 {
		t.Fatalf("cache mismatch: %f != %f", p2, p1)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
	t.Log("Price cache hit verified")
}

func TestBirdeyeGetPriceInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"value":0}}`))
	}))
	defer srv.Close()

	client := external.NewBirdeyeClient("test-key", external.BirdeyeOptions{
		BaseURL: srv.URL,
		Logger:  quietLogger(),
	})

	_, err := client.GetPrice(context.Background(), "SomeMint")
	if err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestRugCheckGetReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"score": 350,
			"tokenMeta": {"name": "Jupiter", "symbol": "JUP"},
			"risks": [{"name": "Low liquidity", "level": "warn"}],
			"topHolders": [
				{"address": "A", "pct": 12.5},
				{"address": "B", "pct": 4.1}
			],
			"markets": [
				{"lp": {"baseUSD": 60000, "quoteUSD": 55000}},
				{"lp": {"baseUSD": 10000, "quoteUSD": 9000}}
			]
		}`))
	}))
	defer srv.Close()

	client := external.NewRugCheckClient(external.RugCheckOptions{
		BaseURL: srv.URL,
		Logger:  quietLogger(),
	})

	report, err := client.GetReport(context.Background(), "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.Score != 350 {
		t.Fatalf("score mismatch: got %d", report.Score)
	}
	if got := report.MaxHolderPct(); got != 12.5 {
		t.Fatalf("MaxHolderPct: got %f", got)
	}
	if got := report.TotalLiquidityUSD(); got != 134000 {
		t.Fatalf("TotalLiquidityUSD: got %f", got)
	}
	if report.HasDangerRisk() {
		t.Fatal("warn-level risk should not count as danger")
	}
	t.Logf("Report: score=%d topHolder=%.1f%% liquidity=$%.0f", report.Score, report.MaxHolderPct(), report.TotalLiquidityUSD())
}

func TestRugCheckGetReportNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := external.NewRugCheckClient(external.RugCheckOptions{
		BaseURL: srv.URL,
		Logger:  quietLogger(),
	})

	_, err := client.GetReport(context.Background(), "UnknownMint")
	if err == nil {
		t.Fatal("expected error for missing report")
	}
	t.Logf("Not found: %v", err)
}

func TestCoinGeckoGetSOLPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"usd":147.32}}`))
	}))
	defer srv.Close()

	client := external.NewCoinGeckoClient(external.CoinGeckoOptions{BaseURL: srv.URL})
	price, err := client.GetSOLPrice(context.Background())
	if err != nil {
		t.Fatalf("GetSOLPrice: %v", err)
	}
	if price != 147.32 {
		t.Fatalf("price mismatch: got %f", price)
	}
}

func TestBinanceGetSOLPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"SOLUSDT","price":"146.98000000"}`))
	}))
	defer srv.Close()

	client := external.NewBinanceClient(external.BinanceOptions{BaseURL: srv.URL})
	price, err := client.GetSOLPrice(context.Background())
	if err != nil {
		t.Fatalf("GetSOLPrice: %v", err)
	}
	if price != 146.98 {
		t.Fatalf("price mismatch: got %f", price)
	}
}

func TestBinanceGetSOLPriceBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"SOLUSDT","price":"not-a-number"}`))
	}))
	defer srv.Close()

	client := external.NewBinanceClient(external.BinanceOptions{BaseURL: srv.URL})
	if _, err := client.GetSOLPrice(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

type recordedPrice struct {
	mint   string
	price  float64
	source string
}

type mockRecorder struct {
	records []recordedPrice
}

func (m *mockRecorder) Record(ctx context.Context, mint string, price float64, source string, ts time.Time) (*models.PricePoint, error) {
	m.records = append(m.records, recordedPrice{mint: mint, price: price, source: source})
	return &models.PricePoint{Mint: mint, Price: price, Source: source}, nil
}

func TestSOLPriceFeedFallback(t *testing.T) {
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer gecko.Close()
	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"SOLUSDT","price":"150.00"}`))
	}))
	defer binance.Close()

	rec := &mockRecorder{}
	feed := external.NewSOLPriceFeed(
		external.NewCoinGeckoClient(external.CoinGeckoOptions{BaseURL: gecko.URL}),
		external.NewBinanceClient(external.BinanceOptions{BaseURL: binance.URL}),
		external.SOLPriceFeedOptions{Recorder: rec, Logger: quietLogger()},
	)

	price, err := feed.GetSOLPrice(context.Background())
	if err != nil {
		t.Fatalf("GetSOLPrice: %v", err)
	}
	if price != 150.0 {
		t.Fatalf("price mismatch: got %f", price)
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 recorded point, got %d", len(rec.records))
	}
	if rec.records[0].mint != models.ReferenceMint || rec.records[0].source != "binance" {
		t.Fatalf("unexpected record %+v", rec.records[0])
	}
}

func TestSOLPriceFeedCaches(t *testing.T) {
	var calls atomic.Int32
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"solana":{"usd":148.5}}`))
	}))
	defer gecko.Close()

	feed := external.NewSOLPriceFeed(
		external.NewCoinGeckoClient(external.CoinGeckoOptions{BaseURL: gecko.URL}),
		external.NewBinanceClient(external.BinanceOptions{}),
		external.SOLPriceFeedOptions{CacheTTL: 1 * time.Minute, Logger: quietLogger()},
	)

	for i := 0; i < 3; i++ {
		price, err := feed.GetSOLPrice(context.Background())
		if err != nil {
			t.Fatalf("GetSOLPrice: %v", err)
		}
		if price != 148.5 {
			t.Fatalf("price mismatch: got %f", price)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestPriceOracleRouting(t *testing.T) {
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"usd":140.0}}`))
	}))
	defer gecko.Close()
	birdeye := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"value":0.0000071}}`))
	}))
	defer birdeye.Close()

	feed := external.NewSOLPriceFeed(
		external.NewCoinGeckoClient(external.CoinGeckoOptions{BaseURL: gecko.URL}),
		external.NewBinanceClient(external.BinanceOptions{}),
		external.SOLPriceFeedOptions{Logger: quietLogger()},
	)
	oracle := external.NewPriceOracle(
		external.NewBirdeyeClient("test-key", external.BirdeyeOptions{BaseURL: birdeye.URL, Logger: quietLogger()}),
		feed,
	)

	sol, err := oracle.GetPrice(context.Background(), external.WrappedSOLMint)
	if err != nil {
		t.Fatalf("SOL price: %v", err)
	}
	if sol != 140.0 {
		t.Fatalf("SOL price mismatch: got %f", sol)
	}

	jup, err := oracle.GetPrice(context.Background(), "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN")
	if err != nil {
		t.Fatalf("token price: %v", err)
	}
	if jup != 0.0000071 {
		t.Fatalf("token price mismatch: got %f", jup)
	}
}
