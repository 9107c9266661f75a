package monitor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/registry"
)

func newTestMonitor() (*ProcessMonitor, *registry.Registry) {
	store := registry.NewStore()
	reg := registry.New(store, nil)
	mon := New(reg, time.Second, 5*time.Minute, 60*time.Second, 60*time.Second, zerolog.Nop())
	return mon, reg
}

func TestPromoteBypassHonorsPendingMark(t *testing.T) {
	mon, reg := newTestMonitor()
	reg.RegisterFromHook(registry.HookEvent{SessionID: "s1", WorkingDir: "/tmp/proj", Timestamp: time.Now()})

	mon.MarkPendingBypass("/tmp/proj")
	mon.promoteBypass(reg.List())

	sess, _ := reg.Get("s1")
	if !sess.IsBypass {
		t.Fatal("expected session to be promoted to bypass via pending mark")
	}
}

func TestNormalizeCwdTrimsTrailingSlash(t *testing.T) {
	if normalizeCwd("/tmp/proj/") != normalizeCwd("/tmp/proj") {
		t.Fatal("expected trailing slash to be normalized away")
	}
}
