// Package notify implements the Notification Engine (§4.10): threshold
// and cooldown-gated NotificationItem emission, a bounded in-memory
// history, and best-effort desktop notification delivery.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/config"
)

// Category is one of the six notification categories from §3.
type Category string

const (
	CategoryContext     Category = "context"
	CategoryOperation    Category = "operation"
	CategoryPlan         Category = "plan"
	CategoryAutoCompact  Category = "auto-compact"
	CategoryHandoff      Category = "handoff"
	CategoryBugAlert     Category = "bug-alert"
)

// Priority mirrors the §4.10 data model.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const maxHistory = 100

var cooldowns = map[Category]time.Duration{
	CategoryContext:    2 * time.Minute,
	CategoryOperation:  10 * time.Minute,
	CategoryPlan:       1 * time.Minute,
	CategoryAutoCompact: 5 * time.Minute,
	CategoryHandoff:    5 * time.Minute,
	CategoryBugAlert:   5 * time.Minute,
}

// NotificationItem is the unit the engine emits, per §4.10.
type NotificationItem struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Priority  Priority  `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId,omitempty"`
}

// Sink receives every fired item, used to broadcast notification_fired
// over WS without this package importing internal/ws.
type Sink func(NotificationItem)

// Desktop delivers a best-effort OS-level notification. Engine.fire never
// fails the caller when this returns an error; it only logs.
type Desktop func(item NotificationItem) error

// fireKey identifies the (category, key) cooldown bucket from §4.10 — key
// is usually the session id, but plan dedups on (session, title).
type fireKey struct {
	category Category
	key      string
}

// Engine gates and records NotificationItem emission. All state lives
// behind one mutex; callers may invoke ContextUpdate/BugAlert/etc. from any
// goroutine.
type Engine struct {
	mu sync.Mutex

	settings func() config.NotificationSettings
	desktop  Desktop
	sink     Sink
	log      zerolog.Logger

	lastFired map[fireKey]time.Time
	history   []NotificationItem

	// crossedThresholds tracks, per session, which context thresholds have
	// already fired so each fires at most once per session.
	crossedThresholds map[string]map[float64]bool
	lastContextPct    map[string]float64

	// errorsSinceAlert tracks the accumulated tool-error count per session
	// since its last bug-alert fired.
	errorsSinceAlert map[string]int
}

// New builds an Engine. settingsFn is called on every Fire so a live
// config reload (SIGHUP) is honored without restarting the engine.
func New(settingsFn func() config.NotificationSettings, desktop Desktop, sink Sink, log zerolog.Logger) *Engine {
	return &Engine{
		settings:          settingsFn,
		desktop:           desktop,
		sink:              sink,
		log:               log,
		lastFired:         make(map[fireKey]time.Time),
		crossedThresholds: make(map[string]map[float64]bool),
		lastContextPct:    make(map[string]float64),
		errorsSinceAlert:  make(map[string]int),
	}
}

// fire is the single gated-emission path shared by every category.
func (e *Engine) fire(category Category, key, title, body string, priority Priority, sessionID string, now time.Time) bool {
	settings := e.settings()
	if !settings.Enabled || !settings.Categories[string(category)] {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fk := fireKey{category: category, key: key}
	if last, ok := e.lastFired[fk]; ok && now.Sub(last) < cooldowns[category] {
		return false
	}
	e.lastFired[fk] = now

	item := NotificationItem{
		ID:        uuid.NewString(),
		Category:  category,
		Title:     title,
		Body:      body,
		Priority:  priority,
		Timestamp: now,
		SessionID: sessionID,
	}
	e.history = append(e.history, item)
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}

	if e.desktop != nil {
		if err := e.desktop(item); err != nil {
			e.log.Warn().Err(err).Str("category", string(category)).Msg("desktop notification delivery failed")
		}
	}
	if e.sink != nil {
		e.sink(item)
	}
	return true
}

// ContextUpdate evaluates a session's context-usage percentage against the
// configured thresholds, firing once per threshold-per-session when the
// percentage crosses upward from below.
func (e *Engine) ContextUpdate(sessionID string, usedPercentage float64, now time.Time) {
	settings := e.settings()

	e.mu.Lock()
	prev, seen := e.lastContextPct[sessionID]
	e.lastContextPct[sessionID] = usedPercentage
	crossed := e.crossedThresholds[sessionID]
	if crossed == nil {
		crossed = make(map[float64]bool)
		e.crossedThresholds[sessionID] = crossed
	}
	e.mu.Unlock()

	if !seen {
		prev = 0
	}

	for _, threshold := range settings.ContextThresholds {
		if prev < threshold && usedPercentage >= threshold {
			e.mu.Lock()
			already := crossed[threshold]
			if !already {
				crossed[threshold] = true
			}
			e.mu.Unlock()
			if already {
				continue
			}
			e.fire(CategoryContext, sessionID,
				"Context usage high",
				contextBody(threshold),
				contextPriority(threshold),
				sessionID, now)
		}
	}
}

func contextBody(threshold float64) string {
	switch {
	case threshold >= 90:
		return "Context window is nearly full (90%+)."
	case threshold >= 75:
		return "Context window is over three-quarters full."
	default:
		return "Context window usage crossed a configured threshold."
	}
}

func contextPriority(threshold float64) Priority {
	switch {
	case threshold >= 90:
		return PriorityHigh
	case threshold >= 75:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// OperationComplete fires when a completed operation's token count exceeds
// the configured large-operation threshold.
func (e *Engine) OperationComplete(sessionID string, tokenCount int, now time.Time) {
	settings := e.settings()
	if tokenCount < settings.LargeOperationThreshold {
		return
	}
	e.fire(CategoryOperation, sessionID, "Large operation completed", "A long-running operation finished.", PriorityMedium, sessionID, now)
}

// HandoffReady fires when a session reports it's ready to hand off.
func (e *Engine) HandoffReady(sessionID, title string, now time.Time) {
	e.fire(CategoryHandoff, sessionID, "Handoff ready", title, PriorityMedium, sessionID, now)
}

// AutoCompactTriggered fires when the assistant's own auto-compaction
// kicks in.
func (e *Engine) AutoCompactTriggered(sessionID string, now time.Time) {
	e.fire(CategoryAutoCompact, sessionID, "Auto-compact triggered", "The assistant compacted its context window.", PriorityLow, sessionID, now)
}

// PlanDetected fires once per (session, plan title) within the plan
// cooldown.
func (e *Engine) PlanDetected(sessionID, planTitle string, now time.Time) {
	e.fire(CategoryPlan, sessionID+"|"+planTitle, "New plan", planTitle, PriorityLow, sessionID, now)
}

// BugAlert accumulates is_error=true tool results since the last alert and
// fires once the configured threshold is reached, resetting the counter.
func (e *Engine) BugAlert(sessionID string, newErrors int, now time.Time) {
	if newErrors <= 0 {
		return
	}
	settings := e.settings()

	e.mu.Lock()
	e.errorsSinceAlert[sessionID] += newErrors
	total := e.errorsSinceAlert[sessionID]
	e.mu.Unlock()

	if total < settings.BugAlertThreshold {
		return
	}
	if e.fire(CategoryBugAlert, sessionID, "Repeated tool errors", "Several tool calls have failed in a row.", PriorityHigh, sessionID, now) {
		e.mu.Lock()
		e.errorsSinceAlert[sessionID] = 0
		e.mu.Unlock()
	}
}

// History returns a snapshot of the bounded notification history, oldest
// first.
func (e *Engine) History() []NotificationItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]NotificationItem, len(e.history))
	copy(out, e.history)
	return out
}

// ForgetSession drops per-session cooldown/threshold/error state, called
// when a session ends so its bookkeeping doesn't leak forever.
func (e *Engine) ForgetSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.crossedThresholds, sessionID)
	delete(e.lastContextPct, sessionID)
	delete(e.errorsSinceAlert, sessionID)
	for fk := range e.lastFired {
		if fk.key == sessionID {
			delete(e.lastFired, fk)
		}
	}
}
