// Package ws implements the WS Hub (§4.8): a producer/consumer WebSocket
// protocol layered over the Session Registry. Producers (lifecycle hooks)
// push discriminated events in; consumers (TUI/GUI) receive an initial
// snapshot followed by ordered deltas, and may issue control messages.
package ws

import (
	"github.com/jacquesd/jacques/internal/registry"
)

// MessageType discriminates every inbound and outbound WS payload.
type MessageType string

const (
	// Producer-recognised event types (§4.8).
	MsgSessionStart  MessageType = "session_start"
	MsgSessionEnd    MessageType = "session_end"
	MsgContextUpdate MessageType = "context_update"
	MsgToolEvent     MessageType = "tool_event"
	MsgPromptSubmit  MessageType = "prompt_submit"
	MsgHandoffReady  MessageType = "handoff_ready"

	// Consumer-received push/delta types.
	MsgInitialState      MessageType = "initial_state"
	MsgSessionUpdate     MessageType = "session_update"
	MsgSessionEnded      MessageType = "session_ended"
	MsgFocusChanged      MessageType = "focus_changed"
	MsgNotificationFired MessageType = "notification_fired"

	// Consumer control messages and their paired *_result responses.
	MsgFocusTerminal  MessageType = "focus_terminal"
	MsgTileWindows    MessageType = "tile_windows"
	MsgMaximizeWindow MessageType = "maximize_window"
	MsgLaunchSession  MessageType = "launch_session"
	MsgListWorktrees  MessageType = "list_worktrees"
	MsgCreateWorktree MessageType = "create_worktree"
	MsgRemoveWorktree MessageType = "remove_worktree"

	MsgFocusTerminalResult  MessageType = "focus_terminal_result"
	MsgTileWindowsResult    MessageType = "tile_windows_result"
	MsgMaximizeWindowResult MessageType = "maximize_window_result"
	MsgLaunchSessionResult  MessageType = "launch_session_result"
	MsgListWorktreesResult  MessageType = "list_worktrees_result"
	MsgCreateWorktreeResult MessageType = "create_worktree_result"
	MsgRemoveWorktreeResult MessageType = "remove_worktree_result"

	MsgError MessageType = "error"
)

// WSMessage is the envelope for every message in both directions. Seq is
// assigned by the hub on every outbound message and strictly increases per
// hub instance; consumers use it to detect gaps, though the hub makes no
// redelivery guarantee on gap (at-most-once delivery, per §4.8).
type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// InitialStatePayload is pushed once per consumer connection.
type InitialStatePayload struct {
	Sessions  []*registry.Session `json:"sessions"`
	FocusedID string              `json:"focusedId,omitempty"`
}

// SessionUpdatePayload carries one or more changed sessions.
type SessionUpdatePayload struct {
	Sessions []*registry.Session `json:"sessions"`
}

// SessionEndedPayload announces removed session ids.
type SessionEndedPayload struct {
	SessionIDs []string `json:"sessionIds"`
}

// FocusChangedPayload announces the new focused session id.
type FocusChangedPayload struct {
	SessionID string `json:"sessionId"`
}

// ControlResult is the common shape of every *_result response.
type ControlResult struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// SessionStartEvent registers or re-registers a session via a hook.
type SessionStartEvent struct {
	SessionID  string `json:"sessionId"`
	WorkingDir string `json:"workingDir"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source,omitempty"`
	Model      string `json:"model,omitempty"`
}

// SessionEndEvent signals a session has terminated cleanly.
type SessionEndEvent struct {
	SessionID string `json:"sessionId"`
}

// ContextUpdateEventPayload carries an assistant's self-reported context
// usage and auto-compaction state.
type ContextUpdateEventPayload struct {
	SessionID               string  `json:"sessionId"`
	WindowSize              int     `json:"windowSize"`
	UsedTokens              int     `json:"usedTokens"`
	UsedPercentage          float64 `json:"usedPercentage"`
	IsEstimate              bool    `json:"isEstimate"`
	TotalInputTokens        int     `json:"totalInputTokens"`
	AutoCompactEnabled      bool    `json:"autoCompactEnabled"`
	AutoCompactThreshold    float64 `json:"autoCompactThreshold"`
	AutoCompactBugThreshold float64 `json:"autoCompactBugThreshold"`
}

// ToolEventPayload signals a tool call started or ended.
type ToolEventPayload struct {
	SessionID string `json:"sessionId"`
	Phase     string `json:"phase"` // "start" | "end"
	ToolName  string `json:"toolName"`
}

// PromptSubmitEventPayload signals the assistant is awaiting a user prompt
// decision (permission, plan approval, etc.).
type PromptSubmitEventPayload struct {
	SessionID string `json:"sessionId"`
}

// HandoffReadyEventPayload signals a session reports work ready to hand
// off to another agent or the user.
type HandoffReadyEventPayload struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title,omitempty"`
}

// FocusTerminalControl requests the host window manager focus a session's
// terminal.
type FocusTerminalControl struct {
	SessionID string `json:"sessionId"`
}

// TileWindowsControl requests several sessions' terminals be tiled.
type TileWindowsControl struct {
	SessionIDs []string `json:"sessionIds"`
	Layout     string   `json:"layout,omitempty"`
}

// MaximizeWindowControl requests a session's terminal be maximized.
type MaximizeWindowControl struct {
	SessionID string `json:"sessionId"`
}

// LaunchSessionControl requests a brand new terminal session be launched.
type LaunchSessionControl struct {
	Cwd                        string `json:"cwd"`
	PreferredTerminal          string `json:"preferredTerminal,omitempty"`
	DangerouslySkipPermissions bool   `json:"dangerouslySkipPermissions,omitempty"`
}
