package terminal

// powershellAdapter is the Windows fallback when Windows Terminal isn't
// installed, launching a bare powershell.exe window.
type powershellAdapter struct{}

func (powershellAdapter) name() string { return "powershell" }

func (powershellAdapter) available() bool {
	_, ok := lookPath("powershell.exe")
	return ok
}

func (a powershellAdapter) launch(opts LaunchOptions) LaunchResult {
	path, ok := lookPath("powershell.exe")
	if !ok {
		return unsupportedResult(a.name())
	}
	cmdline := "claude" + skipFlag(opts)
	args := []string{"-NoExit", "-Command", "cd '" + opts.Cwd + "'; " + cmdline}
	if err := runDetached(path, args...); err != nil {
		return LaunchResult{Success: false, Method: a.name(), Error: err.Error()}
	}
	return LaunchResult{Success: true, Method: a.name()}
}
