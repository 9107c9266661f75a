package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/transcript"
)

// scanDebounce matches §4.10's "debounced to 30s per session" transcript
// re-scan cadence for plan re-detection and is_error tool-result counting.
const scanDebounce = 30 * time.Second

// TranscriptSource enumerates the live sessions to scan, returning each
// session's id and transcript path (sessions missing from the list are
// dropped from tracking).
type TranscriptSource func() []ScanTarget

// ScanTarget is one session eligible for the periodic bug/plan scan.
type ScanTarget struct {
	SessionID      string
	TranscriptPath string
}

// Scanner drives the periodic, byte-offset-advancing per-session
// transcript re-scan described in §4.10(d). Each new byte is scanned
// exactly once across polls.
type Scanner struct {
	engine *Engine
	source TranscriptSource
	log    zerolog.Logger

	mu         sync.Mutex
	offsets    map[string]int64
	lastScanAt map[string]time.Time
}

// NewScanner builds a Scanner bound to engine, pulling its session list
// from source on every tick.
func NewScanner(engine *Engine, source TranscriptSource, log zerolog.Logger) *Scanner {
	return &Scanner{
		engine:     engine,
		source:     source,
		log:        log,
		offsets:    make(map[string]int64),
		lastScanAt: make(map[string]time.Time),
	}
}

// Run ticks every interval until ctx is cancelled, scanning each eligible
// session at most once per scanDebounce.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Scanner) tick(now time.Time) {
	targets := s.source()
	live := make(map[string]bool, len(targets))

	for _, t := range targets {
		live[t.SessionID] = true

		s.mu.Lock()
		last, seen := s.lastScanAt[t.SessionID]
		s.mu.Unlock()
		if seen && now.Sub(last) < scanDebounce {
			continue
		}

		s.scanOne(t, now)
	}

	s.mu.Lock()
	for id := range s.offsets {
		if !live[id] {
			delete(s.offsets, id)
			delete(s.lastScanAt, id)
		}
	}
	s.mu.Unlock()
}

func (s *Scanner) scanOne(t ScanTarget, now time.Time) {
	s.mu.Lock()
	offset := s.offsets[t.SessionID]
	s.mu.Unlock()

	outcome, err := transcript.ParseFrom(t.TranscriptPath, offset)
	if err != nil {
		s.log.Debug().Err(err).Str("session", t.SessionID).Msg("notification transcript scan failed")
		return
	}

	s.mu.Lock()
	s.offsets[t.SessionID] = outcome.NextOffset
	s.lastScanAt[t.SessionID] = now
	s.mu.Unlock()

	errCount := 0
	for _, entry := range outcome.Entries {
		if entry.Type == transcript.EntryToolResult && entry.IsError {
			errCount++
		}
	}
	if errCount > 0 {
		s.engine.BugAlert(t.SessionID, errCount, now)
	}

	plans := transcript.DetectModeAndPlans(outcome.Entries, "")
	for _, p := range plans {
		s.engine.PlanDetected(t.SessionID, p.Title, now)
	}
}
