package registry

import (
	"sync"
	"time"

	"github.com/jacquesd/jacques/internal/jerr"
)

// RecentlyEndedTTL is how long an ended session-id blocks re-registration
// (invariant v).
const RecentlyEndedTTL = 30 * time.Second

// IdleThreshold is the default window of inactivity after which a session
// transitions to idle (checked by the Process Monitor, not a hook).
const IdleThreshold = 5 * time.Minute

// ToolPhase distinguishes the start and end of a tool invocation for
// applyToolEvent.
type ToolPhase int

const (
	ToolStart ToolPhase = iota
	ToolEnd
)

// EndReason records why a session ended, for logging and notification copy.
type EndReason string

const (
	EndReasonHook         EndReason = "hook"
	EndReasonDeadProcess  EndReason = "dead_process"
	EndReasonTrashedCwd   EndReason = "trashed_cwd"
	EndReasonIdleTimeout  EndReason = "idle_timeout"
)

// Registry is the serializing façade over Store: every public method here
// is the single path through which session state changes, satisfying §5's
// requirement that all registry mutation funnels onto one logical owner.
type Registry struct {
	store *Store
	notify Notifier

	mu           sync.Mutex
	recentlyEnded map[string]time.Time
}

func New(store *Store, notify Notifier) *Registry {
	return &Registry{
		store:         store,
		notify:        notify,
		recentlyEnded: make(map[string]time.Time),
	}
}

func (r *Registry) wasRecentlyEnded(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	endedAt, ok := r.recentlyEnded[id]
	if !ok {
		return false
	}
	if time.Since(endedAt) > RecentlyEndedTTL {
		delete(r.recentlyEnded, id)
		return false
	}
	return true
}

// upsert merges next into any existing record for next.SessionID using a
// non-nullable-wins policy: a blank/zero field on next never clobbers a
// populated field already on record. registered_at is always preserved from
// the existing record once one exists (invariant i).
func (r *Registry) upsert(next *Session) (*Session, error) {
	if r.wasRecentlyEnded(next.SessionID) {
		return nil, jerr.Wrap(jerr.AlreadyEnded, "registry.upsert", "session %s recently ended", next.SessionID)
	}

	existing, found := r.store.Get(next.SessionID)
	if !found {
		r.store.UpdateAndNotify(next, r.notify)
		return next, nil
	}

	merged := mergeSession(existing, next)
	r.store.UpdateAndNotify(merged, r.notify)
	return merged, nil
}

// mergeSession applies next's mutable fields onto existing, preserving
// registered_at and upgrading (never downgrading) the terminal-key.
func mergeSession(existing, next *Session) *Session {
	merged := existing.Clone()
	merged.RegisteredAtMS = existing.RegisteredAtMS

	if next.Source != "" {
		merged.Source = next.Source
	}
	if next.Title != "" {
		merged.Title = next.Title
	}
	if next.TranscriptPath != "" {
		merged.TranscriptPath = next.TranscriptPath
	}
	if next.WorkingDir != "" {
		merged.WorkingDir = next.WorkingDir
	}
	if next.Project != "" {
		merged.Project = next.Project
	}
	if next.Model.ID != "" {
		merged.Model = next.Model
	}
	if next.Terminal.TerminalPID != 0 {
		merged.Terminal = next.Terminal
	}
	if isUpgrade(merged.TerminalKey, next.TerminalKey) {
		merged.TerminalKey = next.TerminalKey
	}
	if next.Status != "" {
		merged.Status = next.Status
	}
	if next.LastActivityMS != 0 {
		merged.LastActivityMS = next.LastActivityMS
	}
	if next.Context.WindowSize != 0 || next.Context.UsedTokens != 0 {
		merged.Context = next.Context
	}
	if next.AutoCompact.ThresholdPercent != 0 {
		merged.AutoCompact = next.AutoCompact
	}
	if next.Mode != "" {
		merged.Mode = next.Mode
	}
	if next.IsBypass {
		merged.IsBypass = true
	}
	if next.LastToolName != "" {
		merged.LastToolName = next.LastToolName
	}
	if next.Branch != "" {
		merged.Branch = next.Branch
	}
	if next.Worktree != "" {
		merged.Worktree = next.Worktree
	}
	if next.RepoRoot != "" {
		merged.RepoRoot = next.RepoRoot
	}
	return merged
}

func (r *Registry) RegisterFromHook(e HookEvent) (*Session, error) {
	return r.upsert(FromHookEvent(e))
}

func (r *Registry) RegisterFromScanner(p DiscoveredProcess) (*Session, error) {
	return r.upsert(FromDiscoveredProcess(p))
}

func (r *Registry) RegisterFromContextUpdate(e ContextUpdateEvent) (*Session, error) {
	return r.upsert(FromContextUpdate(e))
}

// ApplyContextUpdate mutates a session's context metrics and auto-compact
// descriptor, touching last_activity.
func (r *Registry) ApplyContextUpdate(sessionID string, metrics ContextMetrics, autoCompact AutoCompactDescriptor) error {
	existing, ok := r.store.Get(sessionID)
	if !ok {
		_, err := r.RegisterFromContextUpdate(ContextUpdateEvent{SessionID: sessionID, Context: metrics})
		return err
	}
	if r.wasRecentlyEnded(sessionID) {
		return jerr.Wrap(jerr.AlreadyEnded, "registry.ApplyContextUpdate", "session %s recently ended", sessionID)
	}
	updated := existing.Clone()
	updated.Context = metrics
	updated.AutoCompact = autoCompact
	updated.LastActivityMS = nowMS()
	r.store.UpdateAndNotify(updated, r.notify)
	return nil
}

// ApplyToolEvent transitions status per the §4.4 state machine and records
// the tool name on a start event.
func (r *Registry) ApplyToolEvent(sessionID string, phase ToolPhase, toolName string) error {
	existing, ok := r.store.Get(sessionID)
	if !ok {
		return jerr.Wrap(jerr.NotFound, "registry.ApplyToolEvent", "session %s not found", sessionID)
	}
	if r.wasRecentlyEnded(sessionID) {
		return jerr.Wrap(jerr.AlreadyEnded, "registry.ApplyToolEvent", "session %s recently ended", sessionID)
	}
	updated := existing.Clone()
	updated.LastActivityMS = nowMS()
	switch phase {
	case ToolStart:
		updated.Status = StatusWorking
		if toolName != "" {
			updated.LastToolName = toolName
		}
	case ToolEnd:
		if updated.Status == StatusWorking {
			updated.Status = StatusActive
		}
	}
	r.store.UpdateAndNotify(updated, r.notify)
	return nil
}

// ApplyAwaiting transitions a session to awaiting on an explicit
// prompt-permission event.
func (r *Registry) ApplyAwaiting(sessionID string) error {
	existing, ok := r.store.Get(sessionID)
	if !ok {
		return jerr.Wrap(jerr.NotFound, "registry.ApplyAwaiting", "session %s not found", sessionID)
	}
	updated := existing.Clone()
	if updated.Status == StatusActive || updated.Status == StatusWorking {
		updated.Status = StatusAwaiting
	}
	updated.LastActivityMS = nowMS()
	r.store.UpdateAndNotify(updated, r.notify)
	return nil
}

// ApplyEnrichment attaches a discovered PID/TTY to a previously PID-less
// session, upgrading its terminal-key (invariant ii). A no-op if the
// session already carries a stronger key than the one being offered.
func (r *Registry) ApplyEnrichment(sessionID string, pid int, tty string) {
	existing, ok := r.store.Get(sessionID)
	if !ok {
		return
	}
	updated := existing.Clone()
	updated.Terminal.TerminalPID = pid
	updated.Terminal.TTY = tty
	candidate := discoveredPIDKey(pid)
	if isUpgrade(updated.TerminalKey, candidate) {
		updated.TerminalKey = candidate
	}
	r.store.UpdateAndNotify(updated, r.notify)
}

// ApplyBypassPromotion marks a session as running with permission checks
// skipped.
func (r *Registry) ApplyBypassPromotion(sessionID string) {
	existing, ok := r.store.Get(sessionID)
	if !ok || existing.IsBypass {
		return
	}
	updated := existing.Clone()
	updated.IsBypass = true
	r.store.UpdateAndNotify(updated, r.notify)
}

// ApplyIdleCheck transitions a session to idle if it has been inactive past
// threshold. Called by the Process Monitor's sweep, never by a hook.
func (r *Registry) ApplyIdleCheck(sessionID string, threshold time.Duration) {
	existing, ok := r.store.Get(sessionID)
	if !ok || existing.IsEnded() {
		return
	}
	if existing.Status == StatusIdle {
		return
	}
	last := time.UnixMilli(existing.LastActivityMS)
	if time.Since(last) <= threshold {
		return
	}
	updated := existing.Clone()
	updated.Status = StatusIdle
	r.store.UpdateAndNotify(updated, r.notify)
}

// End marks a session ended, inserts it into recently-ended, and removes it
// from the store.
func (r *Registry) End(sessionID string, reason EndReason) error {
	existing, ok := r.store.Get(sessionID)
	if !ok {
		return jerr.Wrap(jerr.NotFound, "registry.End", "session %s not found", sessionID)
	}
	_ = existing
	r.mu.Lock()
	r.recentlyEnded[sessionID] = time.Now()
	r.mu.Unlock()
	r.store.BatchRemoveAndNotify([]string{sessionID}, r.notify)
	return nil
}

func (r *Registry) List() []*Session { return r.store.GetAll() }

func (r *Registry) Get(id string) (*Session, bool) { return r.store.Get(id) }

func (r *Registry) GetFocused() (*Session, bool) {
	id, ok := r.store.Focused()
	if !ok {
		return nil, false
	}
	return r.store.Get(id)
}

func (r *Registry) SetFocused(sessionID string) error {
	if _, ok := r.store.Get(sessionID); !ok {
		return jerr.Wrap(jerr.NotFound, "registry.SetFocused", "session %s not found", sessionID)
	}
	r.store.SetFocused(sessionID)
	return nil
}

// Store exposes the underlying store for batch access.
func (r *Registry) Store() *Store { return r.store }

// MarkEnded records id as recently-ended without touching the store.
func (r *Registry) MarkEnded(id string) {
	r.mu.Lock()
	r.recentlyEnded[id] = time.Now()
	r.mu.Unlock()
}

// EvictExpiredEnded drops recently-ended entries past TTL. Returns the
// number evicted.
func (r *Registry) EvictExpiredEnded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, endedAt := range r.recentlyEnded {
		if time.Since(endedAt) > RecentlyEndedTTL {
			delete(r.recentlyEnded, id)
			n++
		}
	}
	return n
}
