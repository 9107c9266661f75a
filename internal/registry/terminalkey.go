package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// Terminal-key prefixes; keyRank orders the shapes from AUTO (weakest)
// through DISCOVERED to HOOK (strongest). A key is never downgraded once
// assigned (invariant ii); enrichment only ever moves a session from a
// weaker shape to DISCOVERED:PID:<pid>.
const (
	keyPrefixHook       = "HOOK:"
	keyPrefixAuto       = "AUTO:"
	keyPrefixDiscovered = "DISCOVERED:"
)

func hookTerminalKey(sessionID string) string {
	return keyPrefixHook + sessionID
}

func autoTerminalKey(sessionID string) string {
	return keyPrefixAuto + sessionID
}

func discoveredPIDKey(pid int) string {
	return fmt.Sprintf("%sPID:%d", keyPrefixDiscovered, pid)
}

func discoveredTTYKey(tty string, pid int) string {
	return fmt.Sprintf("%sTTY:%s:%d", keyPrefixDiscovered, tty, pid)
}

func discoveredTerminalKey(term, terminalSessionID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefixDiscovered, term, terminalSessionID)
}

// keyRank orders terminal-key shapes from weakest (0) to strongest, so a caller
// can decide whether replacing one key with another is an upgrade.
func keyRank(key string) int {
	switch {
	case strings.HasPrefix(key, keyPrefixAuto):
		return 0
	case strings.HasPrefix(key, keyPrefixDiscovered+"TTY:"),
		strings.HasPrefix(key, keyPrefixDiscovered) && !strings.HasPrefix(key, keyPrefixDiscovered+"PID:"):
		return 1
	case strings.HasPrefix(key, keyPrefixDiscovered+"PID:"):
		return 2
	case strings.HasPrefix(key, keyPrefixHook):
		return 3
	default:
		return 0
	}
}

// isUpgrade reports whether replacing cur with next strictly increases rank.
func isUpgrade(cur, next string) bool {
	return keyRank(next) > keyRank(cur)
}

// pidFromTerminalKey extracts a PID from a DISCOVERED:PID:<pid> or
// DISCOVERED:TTY:<tty>:<pid> key.
func pidFromTerminalKey(key string) (int, bool) {
	switch {
	case strings.HasPrefix(key, keyPrefixDiscovered+"PID:"):
		rest := strings.TrimPrefix(key, keyPrefixDiscovered+"PID:")
		pid, err := strconv.Atoi(rest)
		if err != nil {
			return 0, false
		}
		return pid, true
	case strings.HasPrefix(key, keyPrefixDiscovered+"TTY:"):
		rest := strings.TrimPrefix(key, keyPrefixDiscovered+"TTY:")
		parts := strings.Split(rest, ":")
		if len(parts) != 2 {
			return 0, false
		}
		pid, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		return pid, true
	default:
		return 0, false
	}
}
