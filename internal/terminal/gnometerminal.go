package terminal

// gnomeTerminalAdapter is the Linux fallback when neither kitty nor
// WezTerm is installed.
type gnomeTerminalAdapter struct{}

func (gnomeTerminalAdapter) name() string { return "gnome-terminal" }

func (gnomeTerminalAdapter) available() bool {
	_, ok := lookPath("gnome-terminal")
	return ok
}

func (a gnomeTerminalAdapter) launch(opts LaunchOptions) LaunchResult {
	path, ok := lookPath("gnome-terminal")
	if !ok {
		return unsupportedResult(a.name())
	}
	cmdline := "claude" + skipFlag(opts)
	args := []string{"--working-directory=" + opts.Cwd, "--", "bash", "-lc", cmdline}
	if err := runDetached(path, args...); err != nil {
		return LaunchResult{Success: false, Method: a.name(), Error: err.Error()}
	}
	return LaunchResult{Success: true, Method: a.name()}
}
