package web

import (
	"net/http"
	"strings"

	"github.com/citykid/crm/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleRunSync pushes the donor list to an external provider once and
// returns the counts. There is no retry; run it again if it fails.
func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	logger := logging.FromContext(r.Context())

	result, err := s.service.RunSync(r.Context(), provider)
	if err != nil {
		if strings.Contains(err.Error(), "unknown sync provider") ||
			strings.Contains(err.Error(), "not configured") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("sync failed", "provider", provider, "error", err)
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	logger.Info("sync finished",
		"provider", provider,
		"synced", result.Synced,
		"failed", result.Failed,
	)
	writeJSON(w, result)
}

func (s *Server) handleSyncLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.service.ListSyncLogs(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		respondStoreError(w, r, err, "list sync logs failed")
		return
	}
	writeJSON(w, logs)
}
