package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/solatra/solatra-backend/internal/position"
	"github.com/solatra/solatra-backend/internal/repository"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// BotSource exposes live trader diagnostics to the API.
type BotSource interface {
	OpenHoldings() []string
}

type Server struct {
	pool       *pgxpool.Pool
	priceRepo  *repository.PriceRepo
	tradeRepo  *repository.TradeRepo
	tokenRepo  *repository.TokenRepo
	positions  *position.Service
	bot        BotSource
	httpServer *http.Server
	apiKey     string
	log        *logrus.Logger
}

func NewServer(pool *pgxpool.Pool, port int, apiKey, corsOrigin string, positions *position.Service, bot BotSource, log *logrus.Logger) *Server {
	s := &Server{
		pool:      pool,
		priceRepo: repository.NewPriceRepo(pool),
		tradeRepo: repository.NewTradeRepo(pool),
		tokenRepo: repository.NewTokenRepo(pool),
		positions: positions,
		bot:       bot,
		apiKey:    apiKey,
		log:       log,
	}

	mux := http.NewServeMux()

	// Price routes
	mux.HandleFunc("GET /v1/prices/today", s.handlePricesToday)
	mux.HandleFunc("GET /v1/prices/day/{date}", s.handlePricesByDay)
	mux.HandleFunc("GET /v1/prices/days", s.handleAvailableDays)
	mux.HandleFunc("GET /v1/prices/latest", s.handleLatestPrice)

	// Trade routes
	mux.HandleFunc("GET /v1/trades/today", s.handleTradesToday)
	mux.HandleFunc("GET /v1/trades/day/{date}", s.handleTradesByDay)
	mux.HandleFunc("GET /v1/trades/all", s.handleAllTrades)
	mux.HandleFunc("GET /v1/trades/stats", s.handleTradeStats)

	// Token screening routes
	mux.HandleFunc("GET /v1/tokens/latest", s.handleTokensLatest)
	mux.HandleFunc("GET /v1/tokens/approved", s.handleTokensApproved)

	// Position routes
	mux.HandleFunc("GET /v1/positions", s.handlePositions)
	mux.HandleFunc("GET /v1/positions/summary", s.handlePositionSummary)
	mux.HandleFunc("GET /v1/positions/{mint}", s.handlePositionByMint)

	// Bot diagnostics
	mux.HandleFunc("GET /v1/bot/holdings", s.handleBotHoldings)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.log.Infof("[API] REST API server started on http://localhost%s", s.httpServer.Addr)
	s.log.Infof("[API] Health check: http://localhost%s/health", s.httpServer.Addr)
	if s.apiKey != "" {
		s.log.Info("[API] Authentication: enabled (Bearer token)")
	} else {
		s.log.Info("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
