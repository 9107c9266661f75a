package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/jerr"
	"github.com/jacquesd/jacques/internal/registry"
	"github.com/jacquesd/jacques/internal/terminal"
)

// handleSessions serves GET /api/sessions: the full live registry list.
func (g *Gateway) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, g.privacyFilter().FilterSlice(g.registry.List()))
}

// handleSessionsByProject serves GET /api/sessions/by-project, grouping
// the live registry by project label.
func (g *Gateway) handleSessionsByProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	grouped := make(map[string][]*registry.Session)
	for _, s := range g.privacyFilter().FilterSlice(g.registry.List()) {
		grouped[s.Project] = append(grouped[s.Project], s)
	}
	writeJSON(w, http.StatusOK, grouped)
}

// handleSessionsStats serves GET /api/sessions/stats: aggregate counters
// over the live registry.
func (g *Gateway) handleSessionsStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessions := g.registry.List()
	stats := map[string]int{"total": len(sessions)}
	for _, s := range sessions {
		stats[string(s.Status)]++
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSessionsRebuild serves POST /api/sessions/rebuild (SSE): rebuilds
// the global session index from every project's catalog.
func (g *Gateway) handleSessionsRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.rebuild", "response writer doesn't support streaming"))
		return
	}
	err := g.indexer.BuildSessionIndex(func(p catalog.Progress) {
		sse.progress(p)
	})
	if err != nil {
		sse.errorEvent(err.Error())
		return
	}
	sse.complete(map[string]string{"status": "ok"})
}

// handleSessionsLaunch serves POST /api/sessions/launch.
func (g *Gateway) handleSessionsLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Cwd                        string `json:"cwd"`
		PreferredTerminal          string `json:"preferredTerminal"`
		DangerouslySkipPermissions bool   `json:"dangerouslySkipPermissions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.launch", "invalid request body"))
		return
	}
	result := g.orchestrator.LaunchTerminalSession(terminal.LaunchOptions{
		Cwd:                        body.Cwd,
		PreferredTerminal:          body.PreferredTerminal,
		DangerouslySkipPermissions: body.DangerouslySkipPermissions,
	})
	writeJSON(w, http.StatusOK, result)
}

// handleSessionSubroutes dispatches /api/sessions/:id and its nested
// routes (badges, subagents/:agentId, web-searches, tasks,
// plans/:messageIndex).
func (g *Gateway) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	sessionID, err := url.PathUnescape(parts[0])
	if err != nil || sessionID == "" {
		writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.session", "invalid session id"))
		return
	}

	sess, ok := g.registry.Get(sessionID)
	if !ok {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.session", "session %s not found", sessionID))
		return
	}

	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, g.privacyFilter().Apply(sess))
		return
	}

	sub := parts[1]
	switch {
	case sub == "badges":
		writeJSON(w, http.StatusOK, []string{})
	case sub == "web-searches":
		writeJSON(w, http.StatusOK, []string{})
	case sub == "tasks":
		writeJSON(w, http.StatusOK, []string{})
	case strings.HasPrefix(sub, "subagents/"):
		agentID := strings.TrimPrefix(sub, "subagents/")
		g.handleSubagentLookup(w, sessionID, agentID)
	case strings.HasPrefix(sub, "plans/"):
		idxStr := strings.TrimPrefix(sub, "plans/")
		idx, convErr := strconv.Atoi(idxStr)
		if convErr != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.session", "invalid message index %q", idxStr))
			return
		}
		g.handlePlanAtIndex(w, sessionID, idx)
	default:
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.session", "unknown session route %q", sub))
	}
}

func (g *Gateway) handleSubagentLookup(w http.ResponseWriter, sessionID, agentID string) {
	sess, ok := g.registry.Get(sessionID)
	if !ok {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.subagent", "session %s not found", sessionID))
		return
	}
	idx, err := catalog.LoadProjectIndex(sess.WorkingDir)
	if err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.subagent", "no catalog for %s", sess.WorkingDir))
		return
	}
	for _, sub := range idx.Subagents {
		if sub.ID == agentID {
			writeJSON(w, http.StatusOK, sub)
			return
		}
	}
	writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.subagent", "subagent %s not found", agentID))
}

func (g *Gateway) handlePlanAtIndex(w http.ResponseWriter, sessionID string, messageIndex int) {
	global, err := catalog.LoadGlobalSessionIndex()
	if err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.session", "load global session index: %v", err))
		return
	}
	for _, entry := range global.Sessions {
		if entry.SessionID != sessionID {
			continue
		}
		for _, plan := range entry.Plans {
			if plan.MessageIndex == messageIndex {
				writeJSON(w, http.StatusOK, plan)
				return
			}
		}
		break
	}
	writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.session", "no plan at message index %d for session %s", messageIndex, sessionID))
}
