package api

import "net/http"

type botHoldingsJSON struct {
	Count    int      `json:"count"`
	Holdings []string `json:"holdings"`
}

func (s *Server) handleBotHoldings(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		writeError(w, http.StatusServiceUnavailable, "trading bot not running")
		return
	}
	holdings := s.bot.OpenHoldings()
	if holdings == nil {
		holdings = []string{}
	}
	writeJSON(w, http.StatusOK, botHoldingsJSON{
		Count:    len(holdings),
		Holdings: holdings,
	})
}
