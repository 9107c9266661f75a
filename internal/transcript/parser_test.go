package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	var body string
	for _, l := range lines {
		body += l + "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestParseFromSkipsMalformedLinesButAdvancesOffset(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","uuid":"u1","timestamp":"2024-01-01T00:00:00Z","message":{"content":"hi"}}`,
		`not json at all`,
		`{"type":"assistant","uuid":"u2","timestamp":"2024-01-01T00:00:01Z","message":{"model":"m1","usage":{"input_tokens":10,"output_tokens":5},"content":[{"type":"text","text":"hello"}]}}`,
	)

	out, err := ParseFrom(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SkippedLines != 1 {
		t.Fatalf("expected 1 skipped line, got %d", out.SkippedLines)
	}
	if len(out.Entries) != 2 {
		t.Fatalf("expected 2 parsed entries, got %d", len(out.Entries))
	}
	if out.Entries[1].Model != "m1" {
		t.Fatalf("expected model m1, got %q", out.Entries[1].Model)
	}
}

func TestParseFromResumesFromOffset(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","uuid":"u1","timestamp":"2024-01-01T00:00:00Z"}`,
		`{"type":"user","uuid":"u2","timestamp":"2024-01-01T00:00:01Z"}`,
	)

	first, err := ParseFrom(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Entries) != 2 {
		t.Fatalf("expected 2 entries on first pass, got %d", len(first.Entries))
	}

	second, err := ParseFrom(path, first.NextOffset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Entries) != 0 {
		t.Fatalf("expected no new entries on second pass, got %d", len(second.Entries))
	}
	if second.NextOffset != first.NextOffset {
		t.Fatalf("expected offset to stay put with no new data")
	}
}

func TestParseFromLeavesIncompleteTrailingLineForNextPoll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	os.WriteFile(path, []byte(`{"type":"user","uuid":"u1","timestamp":"2024-01-01T00:00:00Z"}`+"\n"+`{"type":"user","uuid":"u2"`), 0o644)

	out, err := ParseFrom(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("expected 1 complete entry, got %d", len(out.Entries))
	}
}

func TestGetEntryStatisticsUsesLastTurnNotSum(t *testing.T) {
	entries := []Entry{
		{Type: EntryAssistantMessage, Usage: &Usage{InputTokens: 100, OutputTokens: 20}},
		{Type: EntryAssistantMessage, Usage: &Usage{InputTokens: 150, OutputTokens: 30}},
	}
	stats := GetEntryStatistics(entries)
	if stats.LastTurnInputTokens != 150 {
		t.Fatalf("expected last-turn input tokens 150 (not summed), got %d", stats.LastTurnInputTokens)
	}
	if stats.TotalInputTokens != 250 {
		t.Fatalf("expected total input tokens summed to 250, got %d", stats.TotalInputTokens)
	}
}

func TestDetectModeAndPlansFindsEmbeddedPlan(t *testing.T) {
	entries := []Entry{
		{Type: EntryAssistantMessage, Text: "Here is the plan\n# Ship the feature\nStep one."},
	}
	plans := DetectModeAndPlans(entries, "")
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}
	if plans[0].Title != "Ship the feature" {
		t.Fatalf("expected title from H1 heading, got %q", plans[0].Title)
	}
	if plans[0].Source != PlanSourceEmbedded {
		t.Fatalf("expected embedded source, got %s", plans[0].Source)
	}
}

func TestExtractTaskSignalsDeduplicatesByTitle(t *testing.T) {
	entries := []Entry{
		{Type: EntryToolCall, ToolName: "TodoWrite", Text: "- [ ] write tests"},
		{Type: EntryToolCall, ToolName: "TodoWrite", Text: "- [x] write tests"},
	}
	tasks := ExtractTaskSignals(entries, "s1")
	if len(tasks) != 1 {
		t.Fatalf("expected 1 deduplicated task, got %d", len(tasks))
	}
	if tasks[0].Status != TaskCompleted {
		t.Fatalf("expected latest status completed, got %s", tasks[0].Status)
	}
}
