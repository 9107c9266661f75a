// Package monitor runs the periodic sweeps that keep the session registry
// honest once a session has been registered: dead-process removal, trash-cwd
// removal, idle-timeout detection, PID-less enrichment, and bypass-flag
// promotion (§4.5). It is the adaptation of the teacher's poll-loop engine
// (internal/monitor/monitor.go) to sit on top of internal/registry and
// internal/process instead of owning its own store.
package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/process"
	"github.com/jacquesd/jacques/internal/registry"
)

// ProcessMonitor runs the §4.5 sweep on a fixed interval.
type ProcessMonitor struct {
	reg    *registry.Registry
	log    zerolog.Logger
	interval time.Duration
	idleThreshold time.Duration
	pidlessGrace  time.Duration

	mu             sync.Mutex
	pendingBypass  map[string]time.Time // normalized cwd -> expiry
	bypassTTL      time.Duration
}

func New(reg *registry.Registry, interval, idleThreshold, pidlessGrace, bypassTTL time.Duration, log zerolog.Logger) *ProcessMonitor {
	return &ProcessMonitor{
		reg:           reg,
		log:           log,
		interval:      interval,
		idleThreshold: idleThreshold,
		pidlessGrace:  pidlessGrace,
		pendingBypass: make(map[string]time.Time),
		bypassTTL:     bypassTTL,
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (m *ProcessMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep performs one full pass per §4.5. Failure to enumerate processes is
// fail-safe: it removes nothing.
func (m *ProcessMonitor) sweep() {
	sessions := m.reg.List()

	procs, err := process.GetClaudeProcesses()
	if err != nil {
		m.log.Warn().Err(err).Msg("monitor: process enumeration failed, skipping sweep")
		return
	}
	running := make(map[int]bool, len(procs))
	for _, p := range procs {
		running[p.PID] = true
	}

	for _, sess := range sessions {
		if sess.IsEnded() {
			continue
		}

		if pid, ok := sess.PID(); ok {
			if !running[pid] {
				m.endSession(sess.SessionID, registry.EndReasonDeadProcess)
				continue
			}
		}

		if process.InTrash(sess.WorkingDir) {
			m.endSession(sess.SessionID, registry.EndReasonTrashedCwd)
			continue
		}

		m.reg.ApplyIdleCheck(sess.SessionID, m.idleThreshold)
	}

	m.enrichPIDless(sessions, procs)
	m.promoteBypass(sessions)
}

func (m *ProcessMonitor) endSession(id string, reason registry.EndReason) {
	if err := m.reg.End(id, reason); err != nil {
		m.log.Debug().Err(err).Str("sessionId", id).Msg("monitor: end failed (likely already ended)")
	}
}

// enrichPIDless implements §4.5 step 4: sessions past the grace window with
// no resolvable PID get one claimed from the pool of running assistant
// processes, bucketed by normalized cwd, "first-come" per bucket.
func (m *ProcessMonitor) enrichPIDless(sessions []*registry.Session, procs []process.Detected) {
	claimed := make(map[int]bool)
	for _, sess := range sessions {
		if pid, ok := sess.PID(); ok {
			claimed[pid] = true
		}
	}

	byCwd := make(map[string][]process.Detected)
	for _, p := range procs {
		if claimed[p.PID] {
			continue
		}
		key := normalizeCwd(p.Cwd)
		byCwd[key] = append(byCwd[key], p)
	}

	now := time.Now()
	for _, sess := range sessions {
		if sess.IsEnded() {
			continue
		}
		if _, ok := sess.PID(); ok {
			continue
		}
		registeredAt := time.UnixMilli(sess.RegisteredAtMS)
		if now.Sub(registeredAt) < m.pidlessGrace {
			continue
		}

		key := normalizeCwd(sess.WorkingDir)
		bucket := byCwd[key]
		if len(bucket) == 0 {
			m.endSession(sess.SessionID, registry.EndReasonDeadProcess)
			continue
		}

		candidate := bucket[0]
		byCwd[key] = bucket[1:]
		m.reg.ApplyEnrichment(sess.SessionID, candidate.PID, candidate.TTY)
	}
}

// promoteBypass checks every non-bypass session's PID against the bypass
// flag, and separately promotes the first session whose cwd matches a
// pending-bypass mark left by the Terminal Orchestrator, consuming the mark.
func (m *ProcessMonitor) promoteBypass(sessions []*registry.Session) {
	m.mu.Lock()
	for cwd, expiry := range m.pendingBypass {
		if time.Now().After(expiry) {
			delete(m.pendingBypass, cwd)
		}
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		if sess.IsBypass {
			continue
		}
		if pid, ok := sess.PID(); ok && process.IsBypass(pid) {
			m.reg.ApplyBypassPromotion(sess.SessionID)
			continue
		}
		m.mu.Lock()
		key := normalizeCwd(sess.WorkingDir)
		_, pending := m.pendingBypass[key]
		if pending {
			delete(m.pendingBypass, key)
		}
		m.mu.Unlock()
		if pending {
			m.reg.ApplyBypassPromotion(sess.SessionID)
		}
	}
}

// MarkPendingBypass records that the next session whose cwd matches cwd
// should be promoted to bypass even before its command line can be probed.
// A re-mark resets the expiry.
func (m *ProcessMonitor) MarkPendingBypass(cwd string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingBypass[normalizeCwd(cwd)] = time.Now().Add(m.bypassTTL)
}

func normalizeCwd(cwd string) string {
	return strings.TrimRight(cwd, "/")
}
