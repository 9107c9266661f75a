package terminal

import "testing"

type fakeAdapter struct {
	adapterName string
	isAvailable bool
	launched    *LaunchOptions
}

func (f *fakeAdapter) name() string { return f.adapterName }
func (f *fakeAdapter) available() bool { return f.isAvailable }
func (f *fakeAdapter) launch(opts LaunchOptions) LaunchResult {
	f.launched = &opts
	return LaunchResult{Success: true, Method: f.adapterName}
}

func TestPickAdapterPrefersAvailablePreferredTerminal(t *testing.T) {
	kitty := &fakeAdapter{adapterName: "kitty", isAvailable: true}
	wezterm := &fakeAdapter{adapterName: "wezterm", isAvailable: true}
	o := &Orchestrator{adapters: []adapter{kitty, wezterm}}

	got := o.pickAdapter("wezterm")
	if got.name() != "wezterm" {
		t.Fatalf("expected preferred adapter wezterm, got %s", got.name())
	}
}

func TestPickAdapterFallsBackWhenPreferredUnavailable(t *testing.T) {
	kitty := &fakeAdapter{adapterName: "kitty", isAvailable: true}
	wezterm := &fakeAdapter{adapterName: "wezterm", isAvailable: false}
	o := &Orchestrator{adapters: []adapter{kitty, wezterm}}

	got := o.pickAdapter("wezterm")
	if got.name() != "kitty" {
		t.Fatalf("expected fallback to first available adapter kitty, got %s", got.name())
	}
}

func TestPickAdapterReturnsNilWhenNoneAvailable(t *testing.T) {
	kitty := &fakeAdapter{adapterName: "kitty", isAvailable: false}
	o := &Orchestrator{adapters: []adapter{kitty}}

	if got := o.pickAdapter(""); got != nil {
		t.Fatalf("expected nil adapter, got %v", got)
	}
}

func TestLaunchTerminalSessionFiresBypassCallbackOnSuccess(t *testing.T) {
	kitty := &fakeAdapter{adapterName: "kitty", isAvailable: true}
	o := &Orchestrator{adapters: []adapter{kitty}}

	var bypassCwd string
	o.OnLaunchBypass(func(cwd string) { bypassCwd = cwd })

	result := o.LaunchTerminalSession(LaunchOptions{Cwd: "/tmp/proj", DangerouslySkipPermissions: true})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if bypassCwd != "/tmp/proj" {
		t.Fatalf("expected bypass callback fired with cwd, got %q", bypassCwd)
	}
}

func TestLaunchTerminalSessionUnsupportedWhenNoAdapterAvailable(t *testing.T) {
	o := &Orchestrator{adapters: []adapter{&fakeAdapter{adapterName: "kitty", isAvailable: false}}}

	result := o.LaunchTerminalSession(LaunchOptions{Cwd: "/tmp/proj"})
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Method != "unsupported" {
		t.Fatalf("expected method=unsupported, got %s", result.Method)
	}
}

func TestParseTmuxPanesBuildsTargetsFromTSVOutput(t *testing.T) {
	out := "123\tmain\t0\t1\n456\tmain\t1\t0\n"
	panes := parseTmuxPanes(out)
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(panes))
	}
	if panes[0].Target != "main:0.1" {
		t.Fatalf("expected target main:0.1, got %s", panes[0].Target)
	}
	if panes[0].PanePID != 123 {
		t.Fatalf("expected pane pid 123, got %d", panes[0].PanePID)
	}
}

func TestParseTmuxPanesSkipsMalformedLines(t *testing.T) {
	out := "not-enough-fields\n123\tmain\t0\t1\n"
	panes := parseTmuxPanes(out)
	if len(panes) != 1 {
		t.Fatalf("expected malformed line to be skipped, got %d panes", len(panes))
	}
}

func TestTmuxResolverResolveReturnsFalseWhenNil(t *testing.T) {
	var r *TmuxResolver
	if _, ok := r.Resolve(123); ok {
		t.Fatal("expected nil resolver to report not-found")
	}
}

func TestTmuxResolverResolveDirectMatch(t *testing.T) {
	r := &TmuxResolver{targetByPID: map[int]string{123: "main:0.0"}}
	if target, ok := r.Resolve(123); !ok || target != "main:0.0" {
		t.Fatalf("expected direct match, got %q, %v", target, ok)
	}
}
