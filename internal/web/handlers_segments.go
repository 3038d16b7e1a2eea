package web

import (
	"net/http"

	"github.com/citykid/crm/internal/core"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := s.service.ListSegments(r.Context())
	if err != nil {
		respondStoreError(w, r, err, "list segments failed")
		return
	}
	writeJSON(w, segments)
}

func (s *Server) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	var in core.SegmentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	segment, err := s.service.CreateSegment(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, segment)
}

func (s *Server) handleSegmentMembers(w http.ResponseWriter, r *http.Request) {
	donors, err := s.service.SegmentMembers(r.Context(), chi.URLParam(r, "segmentID"))
	if err != nil {
		respondStoreError(w, r, err, "segment members failed")
		return
	}
	writeJSON(w, donors)
}

func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSegment(r.Context(), chi.URLParam(r, "segmentID")); err != nil {
		respondStoreError(w, r, err, "delete segment failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
