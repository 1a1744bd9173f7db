package api

import (
	"net/http"

	"github.com/solatra/solatra-backend/internal/position"
)

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var positions []position.TokenPosition
	if r.URL.Query().Get("open") == "true" {
		positions, err = s.positions.OpenPositions(r.Context(), mode)
	} else {
		positions, err = s.positions.AllPositions(r.Context(), mode)
	}
	if err != nil {
		s.log.Errorf("[API] Error computing positions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute positions")
		return
	}
	if positions == nil {
		positions = []position.TokenPosition{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handlePositionSummary(w http.ResponseWriter, r *http.Request) {
	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := s.positions.Summary(r.Context(), mode)
	if err != nil {
		s.log.Errorf("[API] Error computing portfolio summary: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute portfolio summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePositionByMint(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")

	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, err := s.positions.TokenPosition(r.Context(), mint, mode)
	if err != nil {
		s.log.Errorf("[API] Error computing position for %s: %v", mint, err)
		writeError(w, http.StatusInternalServerError, "failed to compute position")
		return
	}
	if pos.TradeCount == 0 {
		writeError(w, http.StatusNotFound, "no trades recorded for mint")
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
