package terminal

// terminalAppAdapter is the macOS Terminal.app fallback, scripted via
// osascript. Last in the macOS priority chain since it lacks native
// tab-reuse/window-targeting that iTerm/kitty/wezterm offer.
type terminalAppAdapter struct{}

func (terminalAppAdapter) name() string { return "terminal.app" }

func (terminalAppAdapter) available() bool {
	_, ok := lookPath("osascript")
	return ok
}

func (a terminalAppAdapter) launch(opts LaunchOptions) LaunchResult {
	path, ok := lookPath("osascript")
	if !ok {
		return unsupportedResult(a.name())
	}
	script := `tell application "Terminal"
		do script "cd ` + shellQuote(opts.Cwd) + ` && claude` + skipFlag(opts) + `"
		activate
	end tell`
	if err := runDetached(path, "-e", script); err != nil {
		return LaunchResult{Success: false, Method: a.name(), Error: err.Error()}
	}
	return LaunchResult{Success: true, Method: a.name()}
}
