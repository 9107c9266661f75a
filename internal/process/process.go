// Package process detects and inspects assistant processes on the host.
// It replaces the teacher's hand-rolled /proc parsing with gopsutil/v3,
// giving the daemon the cross-platform behavior the data model requires
// ("equivalent on Windows") from a dependency already listed — unused — in
// the teacher's go.mod.
package process

import (
	"strings"

	gopsproc "github.com/shirou/gopsutil/v3/process"
)

// BypassFlag is the CLI flag that marks a process as running with
// permission checks skipped.
const BypassFlag = "--dangerously-skip-permissions"

// Detected is one assistant process found on the host.
type Detected struct {
	PID int
	TTY string
	Cwd string
}

// IsRunning is a best-effort existence check. Any error (including a
// permission denial or a race where the process exited mid-check) reports
// false, never panics or returns an error — callers treat "cannot tell" as
// "do not remove" at the call site, not here.
func IsRunning(pid int) bool {
	running, err := gopsproc.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return running
}

// IsBypass reports whether pid's command line contains BypassFlag.
func IsBypass(pid int) bool {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	args, err := p.CmdlineSlice()
	if err != nil {
		return false
	}
	for _, a := range args {
		if a == BypassFlag {
			return true
		}
	}
	return false
}

// assistantExecutableNames are the basenames GetClaudeProcesses matches on.
var assistantExecutableNames = map[string]bool{
	"claude":      true,
	"claude-code": true,
}

// GetClaudeProcesses enumerates every running assistant process. Failure to
// enumerate is fail-safe: it returns an empty slice and a non-nil error, and
// callers must not treat that as "no sessions running" for removal purposes.
func GetClaudeProcesses() ([]Detected, error) {
	procs, err := gopsproc.Processes()
	if err != nil {
		return nil, err
	}

	var out []Detected
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		isAssistant := assistantExecutableNames[name]
		if !isAssistant && name == "node" {
			if args, err := p.CmdlineSlice(); err == nil {
				for _, a := range args {
					if strings.Contains(a, "claude") {
						isAssistant = true
						break
					}
				}
			}
		}
		if !isAssistant {
			continue
		}

		cwd, err := p.Cwd()
		if err != nil {
			cwd = ""
		}

		out = append(out, Detected{
			PID: int(p.Pid),
			TTY: resolveTTY(int(p.Pid)),
			Cwd: cwd,
		})
	}
	return out, nil
}
