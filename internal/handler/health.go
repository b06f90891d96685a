package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status     string     `json:"status"`
	Cycles     int        `json:"cycles"`
	LastStart  *time.Time `json:"last_start,omitempty"`
	LastFinish *time.Time `json:"last_finish,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with status "ok" unless the last cycle failed, in
// which case it returns 503 with status "failing" and the error text.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.status.Snapshot()

	body := HealthResponse{Status: "ok", Cycles: snap.Cycles, LastError: snap.LastError}
	if !snap.LastStart.IsZero() {
		body.LastStart = &snap.LastStart
	}
	if !snap.LastFinish.IsZero() {
		body.LastFinish = &snap.LastFinish
	}

	code := http.StatusOK
	if snap.LastError != "" {
		body.Status = "failing"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
