package httpapi

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/config"
	"github.com/jacquesd/jacques/internal/notify"
	"github.com/jacquesd/jacques/internal/registry"
	"github.com/jacquesd/jacques/internal/terminal"
	"github.com/jacquesd/jacques/internal/usagelimits"
)

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	store := registry.NewStore()
	reg := registry.New(store, func(changed []*registry.Session, removed []string) {})
	cfg := &config.Config{Notifications: config.NotificationSettings{Categories: map[string]bool{}}}
	engine := notify.New(func() config.NotificationSettings { return cfg.Notifications }, nil, nil, zerolog.Nop())
	return New(reg, catalog.NewIndexer(), engine, usagelimits.New(), terminal.New(), cfg, t.TempDir()+"/config.json", nil, "", zerolog.Nop())
}

func TestHandleSessionsListsRegisteredSessions(t *testing.T) {
	g := newTestGateway(t)
	if _, err := g.registry.RegisterFromHook(registry.HookEvent{SessionID: "s1", WorkingDir: "/tmp/proj", Timestamp: time.Now()}); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sessions", nil)
	g.handleSessions(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sessions []registry.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "s1" {
		t.Fatalf("expected single session s1, got %+v", sessions)
	}
}

func TestHandleSessionSubroutesNotFoundForUnknownSession(t *testing.T) {
	g := newTestGateway(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sessions/does-not-exist", nil)
	g.handleSessionSubroutes(rec, req)

	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleSessionsStatsCountsByStatus(t *testing.T) {
	g := newTestGateway(t)
	g.registry.RegisterFromHook(registry.HookEvent{SessionID: "a", WorkingDir: "/tmp/a", Timestamp: time.Now()})
	g.registry.RegisterFromHook(registry.HookEvent{SessionID: "b", WorkingDir: "/tmp/b", Timestamp: time.Now()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sessions/stats", nil)
	g.handleSessionsStats(rec, req)

	var stats map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats["total"] != 2 {
		t.Fatalf("expected total=2, got %+v", stats)
	}
}

func TestHandleUsageReturnsServiceUnavailableWithoutCredentials(t *testing.T) {
	g := newTestGateway(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/usage", nil)
	g.handleUsage(rec, req)

	if rec.Code != 503 {
		t.Fatalf("expected 503 when no credentials are configured, got %d", rec.Code)
	}
}

func TestHandleNotificationSettingsRoundTrips(t *testing.T) {
	g := newTestGateway(t)

	rec := httptest.NewRecorder()
	body := `{"enabled":true,"categories":{"context":true},"bugAlertThreshold":3}`
	req := httptest.NewRequest("PUT", "/api/notifications/settings", jsonBody(body))
	g.handleNotificationSettings(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if g.cfg.Notifications.BugAlertThreshold != 3 {
		t.Fatalf("expected settings to be applied, got %+v", g.cfg.Notifications)
	}

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("GET", "/api/notifications/settings", nil)
	g.handleNotificationSettings(rec2, req2)
	if rec2.Code != 200 {
		t.Fatalf("expected 200 on read-back, got %d", rec2.Code)
	}
}
