package terminal

import (
	"fmt"
	"os/exec"
	"runtime"
)

// LaunchOptions configures a new terminal session launch.
type LaunchOptions struct {
	Cwd                       string
	PreferredTerminal         string
	DangerouslySkipPermissions bool
}

// LaunchResult is the outcome of a launch or focus/tile/maximize operation.
// None of the Orchestrator's methods throw; every failure mode is returned
// here.
type LaunchResult struct {
	Success bool
	Method  string
	Error   string
	PID     int
}

// adapter is implemented by each supported terminal emulator.
type adapter interface {
	name() string
	available() bool
	launch(opts LaunchOptions) LaunchResult
}

// Orchestrator detects the best available terminal per-OS and launches or
// focuses sessions in it, falling back to the tmux-pane path when a session
// is already running inside one (cheaper and more reliable than window
// scripting).
type Orchestrator struct {
	adapters []adapter
	tmux     *TmuxResolver
	pendingBypass func(cwd string)
}

// New builds an Orchestrator with the adapter priority order for the
// current OS: macOS — iTerm2 → kitty → wezterm → Terminal.app; Linux —
// kitty → wezterm → GNOME Terminal; Windows — Windows Terminal → PowerShell.
func New() *Orchestrator {
	var order []adapter
	switch runtime.GOOS {
	case "darwin":
		order = []adapter{itermAdapter{}, kittyAdapter{}, weztermAdapter{}, terminalAppAdapter{}}
	case "windows":
		order = []adapter{windowsTerminalAdapter{}, powershellAdapter{}}
	default:
		order = []adapter{kittyAdapter{}, weztermAdapter{}, gnomeTerminalAdapter{}}
	}
	return &Orchestrator{adapters: order, tmux: NewTmuxResolver()}
}

// OnLaunchBypass registers a callback invoked whenever a launch runs with
// DangerouslySkipPermissions, so the Process Monitor's pending-bypass map
// can be primed before the process's command line is probeable.
func (o *Orchestrator) OnLaunchBypass(fn func(cwd string)) {
	o.pendingBypass = fn
}

// LaunchTerminalSession detects the best available terminal (honoring
// PreferredTerminal if it's available), opens a new window for cwd, and
// runs the assistant binary there.
func (o *Orchestrator) LaunchTerminalSession(opts LaunchOptions) LaunchResult {
	chosen := o.pickAdapter(opts.PreferredTerminal)
	if chosen == nil {
		return LaunchResult{Success: false, Method: "unsupported", Error: "no supported terminal found"}
	}

	result := chosen.launch(opts)
	if result.Success && opts.DangerouslySkipPermissions && o.pendingBypass != nil {
		o.pendingBypass(opts.Cwd)
	}
	return result
}

func (o *Orchestrator) pickAdapter(preferred string) adapter {
	if preferred != "" {
		for _, a := range o.adapters {
			if a.name() == preferred && a.available() {
				return a
			}
		}
	}
	for _, a := range o.adapters {
		if a.available() {
			return a
		}
	}
	return nil
}

// FocusTerminal brings the terminal hosting pid to the foreground through
// its tmux pane; when pid is not inside a tmux pane it reports method
// "unsupported".
func (o *Orchestrator) FocusTerminal(pid int) LaunchResult {
	if target, ok := o.tmux.Resolve(pid); ok {
		if err := FocusPane(target); err != nil {
			return LaunchResult{Success: false, Method: "tmux", Error: err.Error()}
		}
		return LaunchResult{Success: true, Method: "tmux"}
	}
	return LaunchResult{Success: false, Method: "unsupported", Error: "no tmux pane found and no window-manager focus path implemented"}
}

// MaximizeWindow is best-effort: only the macOS/osascript and tmux paths
// are implemented, matching the adapters actually wired above. Other
// platforms report success=false with method "unsupported" rather than
// silently doing nothing.
func (o *Orchestrator) MaximizeWindow(pid int) LaunchResult {
	if target, ok := o.tmux.Resolve(pid); ok {
		path, ok := lookPath("tmux")
		if !ok {
			return unsupportedResult("tmux")
		}
		if err := runDetached(path, "resize-pane", "-t", target, "-Z"); err != nil {
			return LaunchResult{Success: false, Method: "tmux", Error: err.Error()}
		}
		return LaunchResult{Success: true, Method: "tmux"}
	}
	if path, ok := lookPath("osascript"); ok {
		script := `tell application "System Events" to tell (first process whose frontmost is true) to set value of attribute "AXFullScreen" of window 1 to true`
		if err := runDetached(path, "-e", script); err != nil {
			return LaunchResult{Success: false, Method: "osascript", Error: err.Error()}
		}
		return LaunchResult{Success: true, Method: "osascript"}
	}
	return LaunchResult{Success: false, Method: "unsupported", Error: "maximize: no tmux pane or osascript available"}
}

// TileWindows tiles the tmux panes hosting pids side-by-side when they
// share a tmux session; it does not attempt cross-session OS window
// tiling, which the pack gives no adapter for.
func (o *Orchestrator) TileWindows(pids []int) LaunchResult {
	path, ok := lookPath("tmux")
	if !ok {
		return unsupportedResult("tmux")
	}
	var targets []string
	for _, pid := range pids {
		if target, ok := o.tmux.Resolve(pid); ok {
			targets = append(targets, target)
		}
	}
	if len(targets) == 0 {
		return LaunchResult{Success: false, Method: "tmux", Error: "no tmux panes found among given pids"}
	}
	if err := runDetached(path, "select-layout", "-t", targets[0], "tiled"); err != nil {
		return LaunchResult{Success: false, Method: "tmux", Error: err.Error()}
	}
	return LaunchResult{Success: true, Method: "tmux"}
}

// lookPath is a small indirection so adapters share one exec.LookPath call
// site for logging/testing purposes.
func lookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

func runDetached(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	return cmd.Start()
}

func unsupportedResult(method string) LaunchResult {
	return LaunchResult{Success: false, Method: method, Error: fmt.Sprintf("%s: not available on this host", method)}
}
