// Package transcript parses the newline-delimited JSON transcript files an
// assistant session writes, tolerating malformed lines rather than aborting
// the stream (§4.1).
package transcript

import "time"

// EntryType enumerates the typed entries a transcript can contain.
type EntryType string

const (
	EntryUserMessage      EntryType = "user_message"
	EntryAssistantMessage EntryType = "assistant_message"
	EntryToolCall         EntryType = "tool_call"
	EntryToolResult       EntryType = "tool_result"
	EntryAgentProgress    EntryType = "agent_progress"
	EntryWebSearch        EntryType = "web_search"
	EntrySummary          EntryType = "summary"
	EntrySystem           EntryType = "system"
)

// Usage mirrors an assistant turn's self-reported token usage.
type Usage struct {
	InputTokens              int
	CacheCreationInputTokens int
	CacheReadInputTokens     int
	OutputTokens             int
}

// TotalContext is the authoritative context-size figure for one turn: the
// full window the turn reports, never summed across turns.
func (u Usage) TotalContext() int {
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// Entry is one parsed transcript line.
type Entry struct {
	Type       EntryType
	UUID       string
	ParentUUID string
	Timestamp  time.Time
	SessionID  string

	// Populated depending on Type.
	Role        string // user_message/assistant_message
	Text        string // message body, best-effort plain text extraction
	ToolName    string // tool_call
	ToolUseID   string // tool_call / tool_result
	IsError     bool   // tool_result
	Model       string // assistant_message
	Usage       *Usage // assistant_message
	Query       string // web_search
	IsCompactionSummary bool // summary
}

// Lines that fail to parse as usable JSON are counted in
// ParseOutcome.SkippedLines and never returned as Entries.
