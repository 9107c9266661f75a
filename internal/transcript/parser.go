package transcript

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// ParseOutcome is the result of parsing a byte range of a transcript file:
// the entries found, how many lines were skipped as malformed, and the
// offset to resume from on the next poll.
type ParseOutcome struct {
	Entries       []Entry
	SkippedLines  int
	NextOffset    int64
}

// ParseFrom reads path starting at offset and returns every complete line
// parsed since. A trailing line with no newline is left unconsumed so the
// next poll re-reads it once it's complete — mirrors the teacher's
// ParseSessionJSONL byte-offset tracking in internal/monitor/jsonl.go.
func ParseFrom(path string, offset int64) (ParseOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseOutcome{NextOffset: offset}, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return ParseOutcome{NextOffset: offset}, err
		}
	}

	out := ParseOutcome{NextOffset: offset}
	reader := bufio.NewReader(f)

	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return out, readErr
		}
		if len(line) == 0 {
			break
		}
		if line[len(line)-1] != '\n' {
			// Incomplete trailing line: don't advance offset, wait for more bytes.
			break
		}

		out.NextOffset += int64(len(line))
		lineData := line[:len(line)-1]

		entry, ok := parseLine(lineData)
		if !ok {
			out.SkippedLines++
			continue
		}
		out.Entries = append(out.Entries, entry)

		if readErr == io.EOF {
			break
		}
	}

	return out, nil
}

// parseLine tolerantly extracts an Entry from one transcript line using
// gjson rather than a strict struct unmarshal, so a line with unexpected or
// partially-written fields degrades to "skip" instead of aborting the scan.
func parseLine(line []byte) (Entry, bool) {
	s := string(line)
	if !gjson.Valid(s) {
		return Entry{}, false
	}
	root := gjson.Parse(s)

	rawType := root.Get("type").Str
	if rawType == "" {
		return Entry{}, false
	}

	e := Entry{
		UUID:       root.Get("uuid").Str,
		ParentUUID: root.Get("parentUuid").Str,
		SessionID:  root.Get("sessionId").Str,
	}
	e.Timestamp = parseTimestamp(root.Get("timestamp").Str)

	switch rawType {
	case "user":
		e.Type = EntryUserMessage
		e.Role = "user"
		e.Text = root.Get("message.content").String()
		if blocks := root.Get("message.content"); blocks.IsArray() {
			e.Text = firstTextBlock(blocks)
		}
	case "assistant":
		e.Type = EntryAssistantMessage
		e.Role = "assistant"
		e.Model = root.Get("message.model").Str
		e.Usage = parseUsage(root.Get("message.usage"))
		if blocks := root.Get("message.content"); blocks.IsArray() {
			e.Text = firstTextBlock(blocks)
			if tool := firstToolUseBlock(blocks); tool.Exists() {
				e.Type = EntryToolCall
				e.ToolName = tool.Get("name").Str
				e.ToolUseID = tool.Get("id").Str
			}
		}
	case "tool_result":
		e.Type = EntryToolResult
		e.ToolUseID = root.Get("tool_use_id").Str
		e.IsError = root.Get("is_error").Bool()
	case "agent_progress", "progress":
		e.Type = EntryAgentProgress
		e.ToolUseID = root.Get("parentToolUseId").Str
		if e.ToolUseID == "" {
			e.ToolUseID = root.Get("toolUseId").Str
		}
	case "web_search", "tool_web_search":
		e.Type = EntryWebSearch
		e.Query = root.Get("query").Str
	case "summary":
		e.Type = EntrySummary
		e.IsCompactionSummary = root.Get("isCompactSummary").Bool() || root.Get("compactMetadata").Exists()
		e.Text = root.Get("summary").Str
	case "system":
		e.Type = EntrySystem
		e.Text = root.Get("content").String()
	default:
		return Entry{}, false
	}

	return e, true
}

func parseUsage(node gjson.Result) *Usage {
	if !node.Exists() {
		return nil
	}
	return &Usage{
		InputTokens:              int(node.Get("input_tokens").Int()),
		CacheCreationInputTokens: int(node.Get("cache_creation_input_tokens").Int()),
		CacheReadInputTokens:     int(node.Get("cache_read_input_tokens").Int()),
		OutputTokens:             int(node.Get("output_tokens").Int()),
	}
}

func firstTextBlock(blocks gjson.Result) string {
	var text string
	blocks.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str == "text" {
			text = block.Get("text").Str
			return false
		}
		return true
	})
	return text
}

func firstToolUseBlock(blocks gjson.Result) gjson.Result {
	var found gjson.Result
	blocks.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str == "tool_use" {
			found = block
			return false
		}
		return true
	})
	return found
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
