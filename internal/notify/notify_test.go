package notify

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/config"
)

func allEnabledSettings() config.NotificationSettings {
	return config.NotificationSettings{
		Enabled: true,
		Categories: map[string]bool{
			"context": true, "operation": true, "plan": true,
			"auto-compact": true, "handoff": true, "bug-alert": true,
		},
		LargeOperationThreshold: 1000,
		ContextThresholds:       []float64{50, 75, 90},
		BugAlertThreshold:       3,
	}
}

func newTestEngine() (*Engine, *[]NotificationItem) {
	var fired []NotificationItem
	sink := func(item NotificationItem) { fired = append(fired, item) }
	e := New(allEnabledSettings, nil, sink, zerolog.Nop())
	return e, &fired
}

func TestContextUpdateFiresOnceWhenCrossingAThreshold(t *testing.T) {
	e, fired := newTestEngine()
	now := time.Now()

	e.ContextUpdate("s1", 40, now)
	if len(*fired) != 0 {
		t.Fatalf("expected no notification below threshold, got %d", len(*fired))
	}

	e.ContextUpdate("s1", 60, now)
	if len(*fired) != 1 {
		t.Fatalf("expected one notification crossing 50%%, got %d", len(*fired))
	}

	e.ContextUpdate("s1", 65, now)
	if len(*fired) != 1 {
		t.Fatalf("expected threshold to fire at most once per session, got %d", len(*fired))
	}
}

func TestContextUpdateRespectsCooldownAcrossSessions(t *testing.T) {
	e, fired := newTestEngine()
	now := time.Now()

	e.ContextUpdate("s1", 80, now)
	e.ContextUpdate("s2", 80, now)
	if len(*fired) != 2 {
		t.Fatalf("expected independent per-session cooldowns, got %d notifications", len(*fired))
	}
}

func TestBugAlertFiresOnlyAtThresholdAndResets(t *testing.T) {
	e, fired := newTestEngine()
	now := time.Now()

	e.BugAlert("s1", 1, now)
	e.BugAlert("s1", 1, now)
	if len(*fired) != 0 {
		t.Fatalf("expected no alert below threshold, got %d", len(*fired))
	}

	e.BugAlert("s1", 1, now)
	if len(*fired) != 1 {
		t.Fatalf("expected alert once threshold reached, got %d", len(*fired))
	}

	// Counter should have reset; two more errors stay below the threshold of 3.
	e.BugAlert("s1", 2, now)
	if len(*fired) != 1 {
		t.Fatalf("expected reset counter below threshold to suppress refire, got %d", len(*fired))
	}
}

func TestDisabledCategoryNeverFires(t *testing.T) {
	settings := allEnabledSettings()
	settings.Categories["plan"] = false
	e := New(func() config.NotificationSettings { return settings }, nil, nil, zerolog.Nop())

	if e.fire(CategoryPlan, "s1", "t", "b", PriorityLow, "s1", time.Now()) {
		t.Fatal("expected disabled category to never fire")
	}
}

func TestHistoryIsBoundedAndForgetSessionClearsState(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()
	for i := 0; i < maxHistory+5; i++ {
		e.fire(CategoryHandoff, "k"+string(rune('a'+i)), "t", "b", PriorityLow, "s1", now)
	}
	if len(e.History()) != maxHistory {
		t.Fatalf("expected %d history entries, got %d", maxHistory, len(e.History()))
	}

	e.ContextUpdate("s1", 80, now)
	e.ForgetSession("s1")
	if _, ok := e.lastContextPct["s1"]; ok {
		t.Fatal("expected ForgetSession to clear lastContextPct")
	}
}
