package transcript

import "time"

// EstimatedTokensPerMessage is the fallback per-message token cost used when
// the assistant does not report output tokens reliably.
const EstimatedTokensPerMessage = 250

// Statistics is the one-pass summary getEntryStatistics produces.
type Statistics struct {
	CountsByType map[EntryType]int

	TotalInputTokens  int
	TotalOutputTokens int

	// LastTurn* are the authoritative context-size values: each assistant
	// turn reports its own full context, so only the most recent turn's
	// figures are meaningful — summing across turns would overcount.
	LastTurnInputTokens        int
	LastTurnCacheCreationTokens int
	LastTurnCacheReadTokens    int

	EstimatedOutputTokens int

	LastActivityAt time.Time
}

// GetEntryStatistics computes counts, token totals, and the last-turn
// context figures in one pass over entries.
func GetEntryStatistics(entries []Entry) Statistics {
	stats := Statistics{CountsByType: make(map[EntryType]int)}

	for _, e := range entries {
		stats.CountsByType[e.Type]++

		if e.Timestamp.After(stats.LastActivityAt) {
			stats.LastActivityAt = e.Timestamp
		}

		if e.Type != EntryAssistantMessage && e.Type != EntryToolCall {
			continue
		}

		if e.Usage == nil {
			stats.EstimatedOutputTokens += EstimatedTokensPerMessage
			continue
		}

		stats.TotalInputTokens += e.Usage.InputTokens
		stats.TotalOutputTokens += e.Usage.OutputTokens

		// Last turn wins — later entries overwrite earlier ones as the loop
		// proceeds in transcript order.
		stats.LastTurnInputTokens = e.Usage.InputTokens
		stats.LastTurnCacheCreationTokens = e.Usage.CacheCreationInputTokens
		stats.LastTurnCacheReadTokens = e.Usage.CacheReadInputTokens

		if e.Usage.OutputTokens == 0 {
			stats.EstimatedOutputTokens += EstimatedTokensPerMessage
		}
	}

	return stats
}
