package httpapi

import (
	"net/http"
	"strings"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/config"
	"github.com/jacquesd/jacques/internal/jerr"
)

// Archive and Sources endpoints are named in spec.md §6's HTTP surface
// list but have no defining [MODULE] anywhere in the spec: no archive
// snapshot format, no retention policy, no Google/Notion sync semantics.
// Rather than invent business logic for an unspecified subsystem, these
// return empty collections, not-found, or "unavailable" rather than
// fabricated data.

func (g *Gateway) handleArchiveStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeError(w, g.log, jerr.Wrap(jerr.Unavailable, "httpapi.archive", "archive is not configured"))
}

func (g *Gateway) handleArchiveConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, []interface{}{})
}

func (g *Gateway) handleArchiveSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, []interface{}{})
}

// handleArchiveSubroutes dispatches /api/archive/conversations/by-project,
// /api/archive/conversations/:id, /api/archive/subagents/:agentId, and
// /api/archive/sessions/:sessionId/subagents.
func (g *Gateway) handleArchiveSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/archive/")
	switch {
	case rest == "conversations/by-project":
		writeJSON(w, http.StatusOK, map[string][]interface{}{})
	case strings.HasPrefix(rest, "conversations/"):
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.archive", "no archived conversation %s", strings.TrimPrefix(rest, "conversations/")))
	case strings.HasPrefix(rest, "subagents/"):
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.archive", "no archived subagent %s", strings.TrimPrefix(rest, "subagents/")))
	case strings.HasPrefix(rest, "sessions/") && strings.HasSuffix(rest, "/subagents"):
		writeJSON(w, http.StatusOK, []interface{}{})
	default:
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.archive", "unknown archive route %q", rest))
	}
}

// handleSourcesStatus serves GET /api/sources/status. Only the ClaudeCode
// source is a real, wired input (§4.2); Google/Notion have no defining
// module so they always report disconnected.
func (g *Gateway) handleSourcesStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claudeCode": g.cfg.Sources.ClaudeCode,
		"google":     false,
		"notion":     false,
	})
}

// handleSourceUnavailable serves POST|DELETE /api/sources/google and
// /api/sources/notion: both report unavailable rather than pretending to
// authenticate against an integration the spec never defines.
func (g *Gateway) handleSourceUnavailable(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodDelete:
		writeError(w, g.log, jerr.Wrap(jerr.Unavailable, "httpapi.sources", "source integration is not configured"))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleConfigRootPath serves GET|POST /api/config/root-path: GET reports
// config.RootPath (catalog.ProjectsRoot when unset), POST stores a new value
// in the config file. The stored value does not change where the indexer
// or the project listing scan; those always use catalog.ProjectsRoot.
func (g *Gateway) handleConfigRootPath(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		root := g.cfg.RootPath
		if root == "" {
			if def, err := catalog.ProjectsRoot(); err == nil {
				root = def
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"rootPath": root})
	case http.MethodPost:
		var body struct {
			RootPath string `json:"rootPath"`
		}
		if err := decodeJSON(r, &body); err != nil || body.RootPath == "" {
			writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.config", "rootPath is required"))
			return
		}
		g.cfg.RootPath = body.RootPath
		if err := config.Save(g.cfgPath, g.cfg); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.config", "save config: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"rootPath": g.cfg.RootPath})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
