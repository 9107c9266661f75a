package transcript

import (
	"path/filepath"
	"regexp"
	"strings"
)

// PlanSource identifies how a plan entered the transcript.
type PlanSource string

const (
	PlanSourceEmbedded PlanSource = "embedded"
	PlanSourceWrite    PlanSource = "write"
	PlanSourceAgent    PlanSource = "agent"
)

// Plan is one detected plan within a transcript.
type Plan struct {
	Title        string
	Source       PlanSource
	MessageIndex int
	FilePath     string // set for PlanSourceWrite
	Body         string
}

// planHeadingPatterns are matched case-insensitively, first match wins, in
// the order listed.
var planHeadingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)implement the following plan`),
	regexp.MustCompile(`(?i)here is the plan`),
	regexp.MustCompile(`(?i)follow this plan`),
}

var planFilenamePattern = regexp.MustCompile(`(?i)plan`)

var markdownH1Pattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// DetectModeAndPlans walks entries and recognises embedded and write-source
// plans. Agent-source plans (produced by an exploration sub-agent) are
// detected separately by the caller from agent_progress entries, since they
// carry their own title via the sub-agent's summary rather than a heading.
func DetectModeAndPlans(entries []Entry, plansDir string) []Plan {
	var plans []Plan

	for i, e := range entries {
		if e.Type == EntryAssistantMessage && e.Text != "" {
			if matched, ok := matchesPlanHeading(e.Text); ok {
				plans = append(plans, Plan{
					Title:        planTitle(matched),
					Source:       PlanSourceEmbedded,
					MessageIndex: i,
					Body:         e.Text,
				})
			}
		}

		if e.Type == EntryToolCall && strings.EqualFold(e.ToolName, "Write") {
			// Best-effort: the file path for a write tool call lives in the
			// tool's input, which this lightweight Entry doesn't carry
			// separately from Text; callers that need the exact path should
			// inspect the raw tool_call entry themselves. Here we only flag
			// candidates by matching the tool's recorded text against the
			// project's plans directory naming convention.
			if plansDir != "" && planFilenamePattern.MatchString(e.Text) {
				plans = append(plans, Plan{
					Title:        firstLine(e.Text),
					Source:       PlanSourceWrite,
					MessageIndex: i,
					FilePath:     filepath.Join(plansDir, firstLine(e.Text)+".md"),
					Body:         e.Text,
				})
			}
		}
	}

	return plans
}

// matchesPlanHeading reports whether text contains one of the fixed
// case-insensitive heading patterns, returning the matched substring's
// containing text for title extraction.
func matchesPlanHeading(text string) (string, bool) {
	for _, pat := range planHeadingPatterns {
		if pat.MatchString(text) {
			return text, true
		}
	}
	return "", false
}

// planTitle extracts the first level-1 markdown heading, falling back to
// the first non-blank line.
func planTitle(text string) string {
	if m := markdownH1Pattern.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return firstLine(text)
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// TaskStatus is one of the three statuses a detected task can carry.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Task is one deduplicated task signal extracted from the transcript.
type Task struct {
	ID     string
	Title  string
	Status TaskStatus
}

var todoPattern = regexp.MustCompile(`(?i)^\s*[-*]\s*\[([ xX])\]\s*(.+)$`)

// ExtractTaskSignals distils a deduplicated task list across the
// transcript: TODO-style tool calls and task_create/task_update system
// entries, keyed by title so repeated mentions of the same task collapse to
// its most recent status.
func ExtractTaskSignals(entries []Entry, sessionID string) []Task {
	byTitle := make(map[string]*Task)
	var order []string

	upsert := func(title string, status TaskStatus) {
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		if t, ok := byTitle[title]; ok {
			t.Status = status
			return
		}
		t := &Task{ID: sessionID + ":" + title, Title: title, Status: status}
		byTitle[title] = t
		order = append(order, title)
	}

	for _, e := range entries {
		switch e.Type {
		case EntryToolCall:
			if strings.EqualFold(e.ToolName, "TodoWrite") || strings.EqualFold(e.ToolName, "TodoRead") {
				for _, line := range strings.Split(e.Text, "\n") {
					if m := todoPattern.FindStringSubmatch(line); len(m) == 3 {
						status := TaskPending
						if strings.EqualFold(m[1], "x") {
							status = TaskCompleted
						}
						upsert(m[2], status)
					}
				}
			}
		case EntrySystem:
			lower := strings.ToLower(e.Text)
			switch {
			case strings.Contains(lower, "task_create"):
				upsert(firstLine(e.Text), TaskPending)
			case strings.Contains(lower, "task_update"):
				status := TaskInProgress
				if strings.Contains(lower, "completed") {
					status = TaskCompleted
				}
				upsert(firstLine(e.Text), status)
			}
		}
	}

	tasks := make([]Task, 0, len(order))
	for _, title := range order {
		tasks = append(tasks, *byTitle[title])
	}
	return tasks
}
