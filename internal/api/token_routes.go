package api

import (
	"net/http"
)

func (s *Server) handleTokensLatest(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	tokens, err := s.tokenRepo.GetLatest(r.Context(), limit)
	if err != nil {
		s.log.Errorf("[API] Error fetching latest tokens: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleTokensApproved(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.tokenRepo.GetApprovedUnbought(r.Context())
	if err != nil {
		s.log.Errorf("[API] Error fetching approved tokens: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
