package api

import (
	"net/http"

	"github.com/solatra/solatra-backend/internal/models"
	"github.com/solatra/solatra-backend/internal/repository"
)

type priceJSON struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// parseMint extracts the ?mint= query parameter, defaulting to the
// SOL/USD reference series.
func parseMint(r *http.Request) string {
	if m := r.URL.Query().Get("mint"); m != "" {
		return m
	}
	return models.ReferenceMint
}

func (s *Server) handlePricesToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mint := parseMint(r)
	today := repository.TradingDayNow()

	prices, err := s.priceRepo.GetByDay(ctx, mint, today)
	if err != nil {
		s.log.Errorf("[API] Error fetching today's prices: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}

	out := make([]priceJSON, len(prices))
	for i, p := range prices {
		out[i] = priceJSON{T: p.Timestamp.UnixMilli(), P: p.Price}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePricesByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	mint := parseMint(r)

	prices, err := s.priceRepo.GetByDay(ctx, mint, date)
	if err != nil {
		s.log.Errorf("[API] Error fetching prices for %s: %v", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}

	out := make([]priceJSON, len(prices))
	for i, p := range prices {
		out[i] = priceJSON{T: p.Timestamp.UnixMilli(), P: p.Price}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAvailableDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.priceRepo.GetAvailableDays(r.Context())
	if err != nil {
		s.log.Errorf("[API] Error fetching available days: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch available days")
		return
	}
	if days == nil {
		days = []string{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	mint := parseMint(r)

	price, err := s.priceRepo.GetLatest(r.Context(), mint)
	if err != nil {
		s.log.Errorf("[API] Error fetching latest price: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch latest price")
		return
	}
	if price == nil {
		writeError(w, http.StatusNotFound, "no price data available")
		return
	}
	writeJSON(w, http.StatusOK, priceJSON{T: price.Timestamp.UnixMilli(), P: price.Price})
}
