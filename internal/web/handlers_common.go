package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/citykid/crm/internal/core"
	"github.com/citykid/crm/internal/logging"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON decodes a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondStoreError maps a service error onto the right status code,
// logging the technical detail and keeping the response message bland.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error, during string) {
	logger := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrImportNotFound):
		writeError(w, http.StatusNotFound, "import session not found")
	default:
		logger.Error(during, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

// filtersFromRequest parses the filters query parameter. Malformed
// filters degrade to the empty set inside ParseFilterSet.
func filtersFromRequest(r *http.Request) core.FilterSet {
	return core.ParseFilterSet(r.URL.Query().Get("filters"), logging.FromContext(r.Context()))
}
