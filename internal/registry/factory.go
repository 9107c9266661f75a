package registry

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// HookEvent is a producer-submitted session_start event from a running
// assistant hook (see §4.8 Producer role).
type HookEvent struct {
	SessionID  string
	Source     string
	WorkingDir string
	Title      string
	Model      ModelDescriptor
	Timestamp  time.Time // event-reported time; preserved as RegisteredAt
}

// DiscoveredProcess is one row from the Process Detector's process scan.
type DiscoveredProcess struct {
	PID        int
	TTY        string
	WorkingDir string
}

// ContextUpdateEvent carries a context_update producer message that arrives
// before any registration has been seen for its session (rare, but the
// factory must still be able to mint a record for it).
type ContextUpdateEvent struct {
	SessionID  string
	WorkingDir string
	Context    ContextMetrics
}

// FromHookEvent builds a Session from a hook-sourced registration. Per §4.3,
// hook-source events preserve registered_at = event.timestamp.
func FromHookEvent(e HookEvent) *Session {
	wd := e.WorkingDir
	return &Session{
		SessionID:      e.SessionID,
		Source:         normalizeSource(e.Source),
		Title:          e.Title,
		WorkingDir:     wd,
		Project:        deriveProjectLabel(wd),
		Model:          e.Model,
		TerminalKey:    hookTerminalKey(e.SessionID),
		Status:         StatusActive,
		RegisteredAtMS: e.Timestamp.UnixMilli(),
		LastActivityMS: e.Timestamp.UnixMilli(),
		Mode:           ModeDefault,
	}
}

// FromDiscoveredProcess builds a Session for a process found by the scanner
// with no prior hook registration. Per §4.3, scanner-source events set
// registered_at = now().
func FromDiscoveredProcess(p DiscoveredProcess) *Session {
	now := time.Now()
	return &Session{
		SessionID:      syntheticSessionID(p),
		Source:         SourceClaudeCode,
		WorkingDir:     p.WorkingDir,
		Project:        deriveProjectLabel(p.WorkingDir),
		Terminal:       TerminalDescriptor{TTY: p.TTY, TerminalPID: p.PID},
		TerminalKey:    discoveredTTYKey(p.TTY, p.PID),
		Status:         StatusActive,
		RegisteredAtMS: now.UnixMilli(),
		LastActivityMS: now.UnixMilli(),
		Mode:           ModeDefault,
	}
}

// FromContextUpdate builds a placeholder Session when a context_update
// arrives for a session-id the registry has not seen before.
func FromContextUpdate(e ContextUpdateEvent) *Session {
	now := time.Now()
	return &Session{
		SessionID:      e.SessionID,
		Source:         SourceClaudeCode,
		WorkingDir:     e.WorkingDir,
		Project:        deriveProjectLabel(e.WorkingDir),
		TerminalKey:    autoTerminalKey(e.SessionID),
		Status:         StatusActive,
		RegisteredAtMS: now.UnixMilli(),
		LastActivityMS: now.UnixMilli(),
		Context:        e.Context,
		Mode:           ModeDefault,
	}
}

func normalizeSource(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SourceClaudeCode, "claude", "claude-code":
		return SourceClaudeCode
	case SourceDispatch:
		return SourceDispatch
	case "":
		return SourceClaudeCode
	default:
		return SourceOther
	}
}

// deriveProjectLabel resolves a human label for a working directory: git
// root basename, falling back to the cwd basename, falling back to the
// literal "Unknown Project".
func deriveProjectLabel(workingDir string) string {
	if workingDir == "" {
		return "Unknown Project"
	}
	if root, ok := gitToplevel(workingDir); ok {
		return filepath.Base(root)
	}
	if base := filepath.Base(workingDir); base != "." && base != string(filepath.Separator) {
		return base
	}
	return "Unknown Project"
}

func gitToplevel(dir string) (string, bool) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return "", false
	}
	return root, true
}

// syntheticSessionID mints a stable id for a scanner-discovered process that
// never registered via a hook.
func syntheticSessionID(p DiscoveredProcess) string {
	return "discovered:" + p.TTY + ":" + strconv.Itoa(p.PID)
}
