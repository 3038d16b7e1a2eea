package web

import "net/http"

// handleStats returns the dashboard aggregates.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetDashboardStats(r.Context())
	if err != nil {
		respondStoreError(w, r, err, "dashboard stats failed")
		return
	}
	writeJSON(w, stats)
}
