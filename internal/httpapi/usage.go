package httpapi

import (
	"net/http"

	"github.com/jacquesd/jacques/internal/jerr"
)

// handleUsage serves GET /api/usage, backed by the Usage Limits Client's
// memoized, fail-safe fetch (§4.12). A nil result (no credentials, or an
// upstream failure) maps to 503 rather than a synthesized usage payload.
func (g *Gateway) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	usage := g.usage.Get(r.Context())
	if usage == nil {
		writeError(w, g.log, jerr.Wrap(jerr.Unavailable, "httpapi.usage", "usage data unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
