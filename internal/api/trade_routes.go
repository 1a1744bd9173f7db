package api

import (
	"fmt"
	"net/http"

	"github.com/solatra/solatra-backend/internal/models"
	"github.com/solatra/solatra-backend/internal/repository"
)

type tradeJSON struct {
	T            int64   `json:"t"`
	Mint         string  `json:"mint"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Qty          float64 `json:"qty"`
	Price        float64 `json:"price"`
	SOLValue     float64 `json:"solValue"`
	ExitReason   *string `json:"exitReason,omitempty"`
	TxSignature  *string `json:"txSignature,omitempty"`
	IsPaperTrade bool    `json:"isPaperTrade"`
}

func toTradeJSON(t models.Trade) tradeJSON {
	return tradeJSON{
		T:            t.Timestamp.UnixMilli(),
		Mint:         t.Mint,
		Symbol:       t.Symbol,
		Side:         t.Side,
		Qty:          t.Quantity.InexactFloat64(),
		Price:        t.UnitPrice.InexactFloat64(),
		SOLValue:     t.SOLValue.InexactFloat64(),
		ExitReason:   t.ExitReason,
		TxSignature:  t.TxSignature,
		IsPaperTrade: t.IsPaperTrade,
	}
}

// parseTradeMode extracts the ?mode= query parameter.
// Returns a *bool: nil = all, true = paper, false = live.
func parseTradeMode(r *http.Request) (*bool, error) {
	v := r.URL.Query().Get("mode")
	switch v {
	case "", "all":
		return nil, nil
	case "paper":
		b := true
		return &b, nil
	case "live":
		b := false
		return &b, nil
	default:
		return nil, fmt.Errorf("invalid mode %q, expected paper|live|all", v)
	}
}

func (s *Server) handleTradesToday(w http.ResponseWriter, r *http.Request) {
	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	today := repository.TradingDayNow()

	trades, err := s.tradeRepo.GetByDay(ctx, today, mode)
	if err != nil {
		s.log.Errorf("[API] Error fetching today's trades: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}

	out := make([]tradeJSON, len(trades))
	for i, t := range trades {
		out[i] = toTradeJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTradesByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	trades, err := s.tradeRepo.GetByDay(ctx, date, mode)
	if err != nil {
		s.log.Errorf("[API] Error fetching trades for %s: %v", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}

	out := make([]tradeJSON, len(trades))
	for i, t := range trades {
		out[i] = toTradeJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAllTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.tradeRepo.GetAll(r.Context(), limit, mode)
	if err != nil {
		s.log.Errorf("[API] Error fetching all trades: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.tradeRepo.GetStats(r.Context(), mode)
	if err != nil {
		s.log.Errorf("[API] Error fetching trade stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trade stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
