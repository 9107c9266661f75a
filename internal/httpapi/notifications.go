package httpapi

import (
	"net/http"

	"github.com/jacquesd/jacques/internal/config"
	"github.com/jacquesd/jacques/internal/jerr"
)

// handleNotificationSettings serves GET|PUT /api/notifications/settings.
func (g *Gateway) handleNotificationSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, g.cfg.Notifications)
	case http.MethodPut:
		var updated config.NotificationSettings
		if err := decodeJSON(r, &updated); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Malformed, "httpapi.notifications", "invalid settings body"))
			return
		}
		g.cfg.Notifications = updated
		if err := config.Save(g.cfgPath, g.cfg); err != nil {
			writeError(w, g.log, jerr.Wrap(jerr.Internal, "httpapi.notifications", "save config: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, g.cfg.Notifications)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleNotificationHistory serves GET /api/notifications/history: the
// Notification Engine's bounded in-memory history (§4.10).
func (g *Gateway) handleNotificationHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, g.notify.History())
}
