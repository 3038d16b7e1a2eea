package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/citykid/crm/internal/core"
	"github.com/citykid/crm/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleStartImport accepts a multipart CSV upload and opens an import
// session. Only .csv and .txt files are accepted, capped at the
// configured size.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".txt" {
		writeError(w, http.StatusBadRequest, "only .csv and .txt files are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("read upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read the uploaded file")
		return
	}

	snap, err := s.service.StartImport(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, snap)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.ImportStatus(chi.URLParam(r, "importID"))
	if err != nil {
		respondStoreError(w, r, err, "import status failed")
		return
	}
	writeJSON(w, snap)
}

// handleImportMapping replaces the column mapping while the session is
// in the mapping step.
func (s *Server) handleImportMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mapping map[string]string `json:"mapping"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.service.SetImportMapping(chi.URLParam(r, "importID"), req.Mapping)
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleImportAdvance(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.AdvanceImport(chi.URLParam(r, "importID"))
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleImportBack(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.BackImport(chi.URLParam(r, "importID"))
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleImportRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.RunImport(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, snap)
}

// respondImportError maps session errors: a missing session is 404,
// anything else is an illegal transition or bad mapping, which is the
// caller's fault.
func (s *Server) respondImportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrImportNotFound) {
		respondStoreError(w, r, err, "import lookup failed")
		return
	}
	writeError(w, http.StatusConflict, err.Error())
}
