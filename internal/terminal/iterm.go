package terminal

// itermAdapter launches sessions in iTerm2 via osascript (macOS only; a
// no-op everywhere else since "osascript"/"iTerm" won't resolve).
type itermAdapter struct{}

func (itermAdapter) name() string { return "iterm" }

func (itermAdapter) available() bool {
	if _, ok := lookPath("osascript"); !ok {
		return false
	}
	_, ok := lookPath("/Applications/iTerm.app/Contents/MacOS/iTerm2")
	return ok
}

func (a itermAdapter) launch(opts LaunchOptions) LaunchResult {
	path, ok := lookPath("osascript")
	if !ok {
		return unsupportedResult(a.name())
	}
	script := `tell application "iTerm"
		create window with default profile
		tell current session of current window
			write text "cd ` + shellQuote(opts.Cwd) + ` && claude` + skipFlag(opts) + `"
		end tell
	end tell`
	if err := runDetached(path, "-e", script); err != nil {
		return LaunchResult{Success: false, Method: a.name(), Error: err.Error()}
	}
	return LaunchResult{Success: true, Method: a.name()}
}
