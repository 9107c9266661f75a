package httpapi

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/jerr"
)

// handleProjects serves GET /api/projects: every project directory known
// to the assistant's transcript store, decoded back to a real path.
func (g *Gateway) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		root, err := catalog.ProjectsRoot()
		if err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.projects", "resolve projects root: %v", err))
			return
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				writeJSON(w, http.StatusOK, []interface{}{})
				return
			}
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.projects", "read projects root: %v", err))
			return
		}
		type projectSummary struct {
			EncodedPath string `json:"encodedPath"`
			Path        string `json:"path"`
			SessionCount int   `json:"sessionCount"`
			PlanCount    int   `json:"planCount"`
		}
		var out []projectSummary
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			decoded := catalog.DecodeProjectPath(e.Name())
			summary := projectSummary{EncodedPath: e.Name(), Path: decoded}
			if idx, err := catalog.LoadProjectIndex(decoded); err == nil {
				summary.SessionCount = len(idx.Sessions)
				summary.PlanCount = len(idx.Plans)
			}
			out = append(out, summary)
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodDelete:
		name := strings.TrimPrefix(r.URL.Path, "/api/projects/")
		if name == "" || name == r.URL.Path {
			writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.projects", "missing project name"))
			return
		}
		g.deleteProject(w, name)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) deleteProject(w http.ResponseWriter, encodedName string) {
	decoded := catalog.DecodeProjectPath(encodedName)
	jacquesDir := filepath.Join(decoded, ".jacques")
	if err := os.RemoveAll(jacquesDir); err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.projects", "remove %s: %v", jacquesDir, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// handleProjectSubroutes dispatches every /api/projects/:encodedPath/...
// route: catalog, plans, handoffs, active-plans, and context CRUD.
func (g *Gateway) handleProjectSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	parts := strings.SplitN(rest, "/", 2)
	encoded := parts[0]
	if encoded == "" {
		writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.project", "missing project path"))
		return
	}
	if r.Method == http.MethodDelete && len(parts) == 1 {
		g.deleteProject(w, encoded)
		return
	}
	projectDir := catalog.DecodeProjectPath(encoded)
	if len(parts) == 1 {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "missing project subroute"))
		return
	}
	sub := parts[1]

	switch {
	case sub == "catalog":
		g.handleProjectCatalog(w, r, projectDir)
	case sub == "plans":
		g.handleProjectPlans(w, r, projectDir)
	case strings.HasPrefix(sub, "plans/") && strings.HasSuffix(sub, "/content"):
		planID := strings.TrimSuffix(strings.TrimPrefix(sub, "plans/"), "/content")
		g.handlePlanContent(w, projectDir, planID)
	case sub == "handoffs":
		g.handleProjectHandoffs(w, projectDir)
	case strings.HasPrefix(sub, "handoffs/") && strings.HasSuffix(sub, "/content"):
		filename := strings.TrimSuffix(strings.TrimPrefix(sub, "handoffs/"), "/content")
		g.handleHandoffContent(w, projectDir, filename)
	case sub == "active-plans":
		g.handleActivePlans(w, r, projectDir)
	case strings.HasPrefix(sub, "context"):
		g.handleProjectContext(w, r, projectDir, strings.TrimPrefix(sub, "context"))
	default:
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "unknown project route %q", sub))
	}
}

func (g *Gateway) handleProjectCatalog(w http.ResponseWriter, r *http.Request, projectDir string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, err := catalog.LoadProjectIndex(projectDir)
	if err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "no catalog for %s", projectDir))
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (g *Gateway) handleProjectPlans(w http.ResponseWriter, r *http.Request, projectDir string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, err := catalog.LoadProjectIndex(projectDir)
	if err != nil {
		writeJSON(w, http.StatusOK, []catalog.Plan{})
		return
	}
	writeJSON(w, http.StatusOK, idx.Plans)
}

func (g *Gateway) handlePlanContent(w http.ResponseWriter, projectDir, planID string) {
	idx, err := catalog.LoadProjectIndex(projectDir)
	if err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "no catalog for %s", projectDir))
		return
	}
	for _, p := range idx.Plans {
		if p.ID == planID {
			content, readErr := os.ReadFile(filepath.Join(projectDir, ".jacques", "plans", p.Filename))
			if readErr != nil {
				writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "plan file missing: %v", readErr))
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"content": string(content)})
			return
		}
	}
	writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "plan %s not found", planID))
}

// handleProjectHandoffs lists the handoff documents written by the
// external handoff tool at <project>/.jacques/handoffs/*.md (§6).
func (g *Gateway) handleProjectHandoffs(w http.ResponseWriter, projectDir string) {
	dir := filepath.Join(projectDir, ".jacques", "handoffs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	writeJSON(w, http.StatusOK, names)
}

func (g *Gateway) handleHandoffContent(w http.ResponseWriter, projectDir, filename string) {
	safeName := filepath.Base(filename)
	content, err := os.ReadFile(filepath.Join(projectDir, ".jacques", "handoffs", safeName))
	if err != nil {
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "handoff %s not found", safeName))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": string(content)})
}

func (g *Gateway) handleActivePlans(w http.ResponseWriter, r *http.Request, projectDir string) {
	idx, err := catalog.LoadProjectIndex(projectDir)
	if err != nil {
		idx = &catalog.ProjectIndex{}
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, idx.ActivePlanIDs)
	case http.MethodPost:
		var body struct {
			PlanIDs []string `json:"planIds"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.project", "invalid request body"))
			return
		}
		idx.ActivePlanIDs = body.PlanIDs
		if err := catalog.SaveProjectIndex(projectDir, idx); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.project", "save catalog: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, idx.ActivePlanIDs)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProjectContext implements CRUD over the project's ContextNote
// entries, keyed by ContextNote.ID.
func (g *Gateway) handleProjectContext(w http.ResponseWriter, r *http.Request, projectDir, rest string) {
	rest = strings.TrimPrefix(rest, "/")
	idx, err := catalog.LoadProjectIndex(projectDir)
	if err != nil {
		idx = &catalog.ProjectIndex{}
	}

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, idx.Context)
		case http.MethodPost:
			var note catalog.ContextNote
			if err := decodeJSON(r, &note); err != nil {
				writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.project", "invalid context note"))
				return
			}
			idx.Context = append(idx.Context, note)
			if err := catalog.SaveProjectIndex(projectDir, idx); err != nil {
				writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.project", "save catalog: %v", err))
				return
			}
			writeJSON(w, http.StatusCreated, note)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, unescapeErr := url.PathUnescape(rest)
	if unescapeErr != nil {
		writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.project", "invalid context id"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		for _, n := range idx.Context {
			if n.ID == id {
				writeJSON(w, http.StatusOK, n)
				return
			}
		}
		writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "context note %s not found", id))
	case http.MethodPut:
		var updated catalog.ContextNote
		if err := decodeJSON(r, &updated); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.project", "invalid context note"))
			return
		}
		updated.ID = id
		found := false
		for i, n := range idx.Context {
			if n.ID == id {
				idx.Context[i] = updated
				found = true
				break
			}
		}
		if !found {
			writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "context note %s not found", id))
			return
		}
		if err := catalog.SaveProjectIndex(projectDir, idx); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.project", "save catalog: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		kept := idx.Context[:0]
		removed := false
		for _, n := range idx.Context {
			if n.ID == id {
				removed = true
				continue
			}
			kept = append(kept, n)
		}
		if !removed {
			writeError(w, g.log, jerr.Wrap(jerr.NotFound, "httpapi.project", "context note %s not found", id))
			return
		}
		idx.Context = kept
		if err := catalog.SaveProjectIndex(projectDir, idx); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.project", "save catalog: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
