package web

import (
	"net/http"
	"time"

	"github.com/citykid/crm/internal/core"
	"github.com/go-chi/chi/v5"
)

// handleListDonors returns one page of donors. The page, search and
// filters parameters drive the same compile the export uses.
func (s *Server) handleListDonors(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListDonors(r.Context(), core.DonorListOptions{
		Page:    parseIntParam(r, "page", 1),
		Search:  r.URL.Query().Get("search"),
		Filters: filtersFromRequest(r),
	})
	if err != nil {
		respondStoreError(w, r, err, "list donors failed")
		return
	}
	writeJSON(w, page)
}

// handleDonorFields returns the mappable donor field catalog, used by
// the mapping and advanced-filter UIs.
func (s *Server) handleDonorFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, core.DonorFields)
}

func (s *Server) handleCreateDonor(w http.ResponseWriter, r *http.Request) {
	var in core.DonorInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donor, err := s.service.CreateDonor(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, donor)
}

func (s *Server) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.GetDonorDetail(r.Context(), chi.URLParam(r, "donorID"))
	if err != nil {
		respondStoreError(w, r, err, "get donor failed")
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleUpdateDonor(w http.ResponseWriter, r *http.Request) {
	var in core.DonorInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donor, err := s.service.UpdateDonor(r.Context(), chi.URLParam(r, "donorID"), in)
	if err != nil {
		respondStoreError(w, r, err, "update donor failed")
		return
	}
	writeJSON(w, donor)
}

func (s *Server) handleDeleteDonor(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDonor(r.Context(), chi.URLParam(r, "donorID")); err != nil {
		respondStoreError(w, r, err, "delete donor failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportDonors streams the filtered donor list as CSV. Zero rows
// is a plain 404 so the UI can tell "nothing matched" apart from a
// store failure, which stays a JSON 500.
func (s *Server) handleExportDonors(w http.ResponseWriter, r *http.Request) {
	data, count, err := s.service.ExportDonors(r.Context(),
		filtersFromRequest(r), r.URL.Query().Get("search"))
	if err != nil {
		respondStoreError(w, r, err, "export donors failed")
		return
	}
	if count == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("No data found to export"))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+core.ExportFilename(time.Now())+`"`)
	w.Write(data)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListInteractions(r.Context(), chi.URLParam(r, "donorID"))
	if err != nil {
		respondStoreError(w, r, err, "list interactions failed")
		return
	}
	writeJSON(w, items)
}

func (s *Server) handleCreateInteraction(w http.ResponseWriter, r *http.Request) {
	var in core.InteractionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.service.CreateInteraction(r.Context(), chi.URLParam(r, "donorID"), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, item)
}
