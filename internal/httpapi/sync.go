package httpapi

import (
	"net/http"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/jerr"
)

// handleSync serves POST /api/sync (SSE): extract every project's catalog
// from its transcripts (unchanged transcripts are skipped), reporting
// progress per transcript file; the counts restart for each project.
func (g *Gateway) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.sync", "response writer doesn't support streaming"))
		return
	}
	opts := catalog.ExtractOptions{OnProgress: func(p catalog.Progress) { sse.progress(p) }}
	if err := g.indexer.ExtractAllCatalogs(opts); err != nil {
		sse.errorEvent(err.Error())
		return
	}
	sse.complete(map[string]string{"status": "ok"})
}

// handleCatalogExtract serves POST /api/catalog/extract (SSE): extract a
// single project's catalog.
func (g *Gateway) handleCatalogExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ProjectDir string `json:"projectDir"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ProjectDir == "" {
		writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.extract", "projectDir is required"))
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.extract", "response writer doesn't support streaming"))
		return
	}
	opts := catalog.ExtractOptions{OnProgress: func(p catalog.Progress) { sse.progress(p) }}
	if err := g.indexer.ExtractProjectCatalog(body.ProjectDir, opts); err != nil {
		sse.errorEvent(err.Error())
		return
	}
	sse.complete(map[string]string{"status": "ok"})
}

// handleArchiveInitialize serves POST /api/archive/initialize (SSE).
//
// spec.md names this endpoint in §6's HTTP surface but defines no
// [MODULE] anywhere for archive semantics (format, retention, what
// "initialize" populates). There is nothing to build it against, so it
// reports a no-op completion rather than inventing archival behavior.
func (g *Gateway) handleArchiveInitialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.archive", "response writer doesn't support streaming"))
		return
	}
	sse.complete(map[string]string{"status": "unavailable"})
}
