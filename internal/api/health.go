package api

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

type healthResponse struct {
	Status        string         `json:"status"`
	Timestamp     string         `json:"timestamp"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Services      healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.pool.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		Services:      healthServices{Database: dbStatus},
	})
}
