package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/jerr"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to an HTTP status via jerr.Kind, per §7's
// propagation policy, and logs Internal-kind errors with their cause.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	kind := jerr.KindOf(err)
	status := kind.HTTPStatus()
	if kind == jerr.Internal {
		log.Error().Err(err).Msg("internal error serving request")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
