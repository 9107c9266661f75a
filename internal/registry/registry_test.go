package registry

import (
	"testing"
	"time"
)

func newTestRegistry() (*Registry, *[]Session) {
	var captured []Session
	store := NewStore()
	notify := func(changed []*Session, removed []string) {
		for _, c := range changed {
			captured = append(captured, *c)
		}
	}
	return New(store, notify), &captured
}

func TestRegisterFromHookPreservesRegisteredAtAcrossReRegistration(t *testing.T) {
	r, _ := newTestRegistry()
	first := time.Now().Add(-time.Hour)
	sess, err := r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/proj", Timestamp: first})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.RegisteredAtMS != first.UnixMilli() {
		t.Fatalf("expected registered_at %d, got %d", first.UnixMilli(), sess.RegisteredAtMS)
	}

	second := time.Now()
	sess2, err := r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/proj", Title: "new title", Timestamp: second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess2.RegisteredAtMS != first.UnixMilli() {
		t.Fatalf("registered_at should be preserved on re-registration, got %d want %d", sess2.RegisteredAtMS, first.UnixMilli())
	}
	if sess2.Title != "new title" {
		t.Fatalf("expected mutable field Title to update, got %q", sess2.Title)
	}
}

func TestUpsertRejectedForRecentlyEndedSession(t *testing.T) {
	r, _ := newTestRegistry()
	if _, err := r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/a", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.End("s1", EndReasonHook); err != nil {
		t.Fatalf("unexpected error ending: %v", err)
	}

	_, err := r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/a", Timestamp: time.Now()})
	if err == nil {
		t.Fatal("expected AlreadyEnded error for re-registration within TTL")
	}
}

func TestTerminalKeyNeverDowngraded(t *testing.T) {
	r, _ := newTestRegistry()
	if _, err := r.RegisterFromContextUpdate(ContextUpdateEvent{SessionID: "s1", WorkingDir: "/tmp/a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, _ := r.Get("s1")
	if sess.TerminalKey != autoTerminalKey("s1") {
		t.Fatalf("expected AUTO key, got %s", sess.TerminalKey)
	}

	enriched := sess.Clone()
	enriched.Terminal.TerminalPID = 4242
	enriched.TerminalKey = discoveredPIDKey(4242)
	merged := mergeSession(sess, enriched)
	if merged.TerminalKey != discoveredPIDKey(4242) {
		t.Fatalf("expected upgrade to DISCOVERED:PID key, got %s", merged.TerminalKey)
	}

	// A weaker key offered afterward must not downgrade.
	weaker := merged.Clone()
	weaker.TerminalKey = autoTerminalKey("s1")
	reMerged := mergeSession(merged, weaker)
	if reMerged.TerminalKey != discoveredPIDKey(4242) {
		t.Fatalf("terminal key must never downgrade, got %s", reMerged.TerminalKey)
	}
}

func TestToolEventStateMachine(t *testing.T) {
	r, _ := newTestRegistry()
	r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/a", Timestamp: time.Now()})

	if err := r.ApplyToolEvent("s1", ToolStart, "Read"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, _ := r.Get("s1")
	if sess.Status != StatusWorking {
		t.Fatalf("expected working after tool start, got %s", sess.Status)
	}
	if sess.LastToolName != "Read" {
		t.Fatalf("expected last tool name Read, got %s", sess.LastToolName)
	}

	if err := r.ApplyToolEvent("s1", ToolEnd, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, _ = r.Get("s1")
	if sess.Status != StatusActive {
		t.Fatalf("expected active after tool end, got %s", sess.Status)
	}
}

func TestApplyIdleCheckTransitionsAfterThreshold(t *testing.T) {
	r, _ := newTestRegistry()
	old := time.Now().Add(-time.Hour)
	r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/a", Timestamp: old})

	r.ApplyIdleCheck("s1", 5*time.Minute)
	sess, _ := r.Get("s1")
	if sess.Status != StatusIdle {
		t.Fatalf("expected idle after threshold exceeded, got %s", sess.Status)
	}
}

func TestEndInsertsRecentlyEndedAndRemovesFromStore(t *testing.T) {
	r, _ := newTestRegistry()
	r.RegisterFromHook(HookEvent{SessionID: "s1", WorkingDir: "/tmp/a", Timestamp: time.Now()})
	if err := r.End("s1", EndReasonDeadProcess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Get("s1"); ok {
		t.Fatal("expected session removed from store after End")
	}
	if !r.wasRecentlyEnded("s1") {
		t.Fatal("expected session to be in recently-ended set")
	}
}
