// Package httpapi implements the HTTP/SSE Gateway (§4.9): the REST surface
// at §6, JSON request/response for simple reads and writes, SSE framing for
// long-running operations, and the embedded-GUI static asset fallback.
package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/config"
	"github.com/jacquesd/jacques/internal/notify"
	"github.com/jacquesd/jacques/internal/registry"
	"github.com/jacquesd/jacques/internal/terminal"
	"github.com/jacquesd/jacques/internal/usagelimits"
)

// Gateway owns every REST/SSE handler and the subsystems they read from.
type Gateway struct {
	registry     *registry.Registry
	indexer      *catalog.Indexer
	notify       *notify.Engine
	usage        *usagelimits.Client
	orchestrator *terminal.Orchestrator
	cfg          *config.Config
	cfgPath      string
	log          zerolog.Logger

	staticHandler http.Handler
	devDir        string
}

// New builds a Gateway. staticHandler serves the embedded GUI build (may
// be nil in dev mode, where devDir is served from disk instead).
func New(reg *registry.Registry, indexer *catalog.Indexer, notifyEngine *notify.Engine, usage *usagelimits.Client, orch *terminal.Orchestrator, cfg *config.Config, cfgPath string, staticHandler http.Handler, devDir string, log zerolog.Logger) *Gateway {
	return &Gateway{
		registry:      reg,
		indexer:       indexer,
		notify:        notifyEngine,
		usage:         usage,
		orchestrator:  orch,
		cfg:           cfg,
		cfgPath:       cfgPath,
		log:           log,
		staticHandler: staticHandler,
		devDir:        devDir,
	}
}

// SetupRoutes registers every /api endpoint plus the SPA static fallback.
func (g *Gateway) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", g.handleSessions)
	mux.HandleFunc("/api/sessions/by-project", g.handleSessionsByProject)
	mux.HandleFunc("/api/sessions/stats", g.handleSessionsStats)
	mux.HandleFunc("/api/sessions/rebuild", g.handleSessionsRebuild)
	mux.HandleFunc("/api/sessions/launch", g.handleSessionsLaunch)
	mux.HandleFunc("/api/sessions/", g.handleSessionSubroutes)

	mux.HandleFunc("/api/projects", g.handleProjects)
	mux.HandleFunc("/api/projects/", g.handleProjectSubroutes)

	mux.HandleFunc("/api/sync", g.handleSync)
	mux.HandleFunc("/api/catalog/extract", g.handleCatalogExtract)
	mux.HandleFunc("/api/archive/initialize", g.handleArchiveInitialize)
	mux.HandleFunc("/api/archive/", g.handleArchiveSubroutes)
	mux.HandleFunc("/api/archive/stats", g.handleArchiveStats)
	mux.HandleFunc("/api/archive/conversations", g.handleArchiveConversations)
	mux.HandleFunc("/api/archive/search", g.handleArchiveSearch)

	mux.HandleFunc("/api/usage", g.handleUsage)
	mux.HandleFunc("/api/notifications/settings", g.handleNotificationSettings)
	mux.HandleFunc("/api/notifications/history", g.handleNotificationHistory)

	mux.HandleFunc("/api/sources/status", g.handleSourcesStatus)
	mux.HandleFunc("/api/sources/google", g.handleSourceUnavailable)
	mux.HandleFunc("/api/sources/notion", g.handleSourceUnavailable)

	mux.HandleFunc("/api/config/root-path", g.handleConfigRootPath)

	if g.devDir != "" {
		g.log.Info().Str("dir", g.devDir).Msg("serving frontend from filesystem")
		mux.Handle("/", spaFallback(http.FileServer(http.Dir(g.devDir)), g.devDir))
	} else if g.staticHandler != nil {
		g.log.Info().Msg("serving embedded frontend")
		mux.Handle("/", g.staticHandler)
	}
}

// privacyFilter derives the current session-masking filter from config on
// every call, so a SIGHUP config reload takes effect without restarting the
// gateway.
func (g *Gateway) privacyFilter() *registry.PrivacyFilter {
	return g.cfg.Privacy.NewPrivacyFilter()
}

// spaFallback serves static assets normally but falls back to index.html
// for any non-API path that doesn't resolve to a file, so client-side
// routes survive a hard refresh.
func spaFallback(inner http.Handler, dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			inner.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
