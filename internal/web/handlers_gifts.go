package web

import (
	"net/http"

	"github.com/citykid/crm/internal/core"
	"github.com/go-chi/chi/v5"
)

// handleListGifts returns one page of gifts with selection-wide totals.
func (s *Server) handleListGifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.service.ListGifts(r.Context(), core.GiftListOptions{
		Page:    parseIntParam(r, "page", 1),
		DonorID: q.Get("donor_id"),
		Fund:    q.Get("fund"),
		From:    q.Get("from"),
		To:      q.Get("to"),
	})
	if err != nil {
		respondStoreError(w, r, err, "list gifts failed")
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleCreateGift(w http.ResponseWriter, r *http.Request) {
	var in core.GiftInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gift, err := s.service.CreateGift(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, gift)
}

func (s *Server) handleUpdateGift(w http.ResponseWriter, r *http.Request) {
	var in core.GiftInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gift, err := s.service.UpdateGift(r.Context(), chi.URLParam(r, "giftID"), in)
	if err != nil {
		respondStoreError(w, r, err, "update gift failed")
		return
	}
	writeJSON(w, gift)
}

func (s *Server) handleDeleteGift(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteGift(r.Context(), chi.URLParam(r, "giftID")); err != nil {
		respondStoreError(w, r, err, "delete gift failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
