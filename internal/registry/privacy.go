package registry

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
)

// PrivacyFilter applies masking and path-based filtering to sessions before
// they leave the daemon over WS or HTTP. The zero value is a no-op filter.
// Adapted from the teacher's session-level filter; the shape it guards
// widened along with Session but the masking/allow-block semantics are
// unchanged.
type PrivacyFilter struct {
	MaskWorkingDirs   bool
	MaskSessionIDs    bool
	MaskPIDs          bool
	MaskTerminalIDs   bool
	AllowedPaths      []string
	BlockedPaths      []string
}

// IsAllowed reports whether a session with the given working directory
// should be broadcast. An empty working directory is always allowed (the
// session hasn't resolved its path yet).
func (f *PrivacyFilter) IsAllowed(workingDir string) bool {
	if workingDir == "" {
		return true
	}
	if len(f.AllowedPaths) > 0 {
		allowed := false
		for _, pattern := range f.AllowedPaths {
			if matchPathOrParent(pattern, workingDir) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	for _, pattern := range f.BlockedPaths {
		if matchPathOrParent(pattern, workingDir) {
			return false
		}
	}
	return true
}

// matchPathOrParent checks if pattern matches path or any of its parent
// directories, so a pattern like "/home/user/*" matches deeply nested paths.
func matchPathOrParent(pattern, path string) bool {
	for p := path; p != "." && p != "" && p != filepath.Dir(p); p = filepath.Dir(p) {
		if matched, _ := filepath.Match(pattern, p); matched {
			return true
		}
	}
	return false
}

// Apply returns a copy of the session with sensitive fields masked.
func (f *PrivacyFilter) Apply(s *Session) *Session {
	masked := s.Clone()

	if f.MaskWorkingDirs && masked.WorkingDir != "" {
		masked.WorkingDir = filepath.Base(masked.WorkingDir)
	}
	if f.MaskSessionIDs && masked.SessionID != "" {
		masked.SessionID = shortHash(masked.SessionID)
	}
	if f.MaskPIDs {
		masked.Terminal.TerminalPID = 0
	}
	if f.MaskTerminalIDs {
		masked.Terminal.TerminalSessionID = ""
		masked.Terminal.PaneID = ""
		masked.Terminal.WindowID = ""
	}
	return masked
}

// FilterSlice returns allowed sessions with masking applied.
func (f *PrivacyFilter) FilterSlice(sessions []*Session) []*Session {
	out := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		if !f.IsAllowed(s.WorkingDir) {
			continue
		}
		out = append(out, f.Apply(s))
	}
	return out
}

// IsNoop reports whether the filter does nothing.
func (f *PrivacyFilter) IsNoop() bool {
	return !f.MaskWorkingDirs && !f.MaskSessionIDs && !f.MaskPIDs && !f.MaskTerminalIDs &&
		len(f.AllowedPaths) == 0 && len(f.BlockedPaths) == 0
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
