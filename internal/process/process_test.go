package process

import "testing"

func TestIsRunningFalseForImpossiblePID(t *testing.T) {
	if IsRunning(-1) {
		t.Fatal("expected IsRunning(-1) to be false")
	}
}

func TestIsBypassFalseForUnknownPID(t *testing.T) {
	if IsBypass(999999999) {
		t.Fatal("expected IsBypass to be false for a nonexistent pid")
	}
}

func TestInTrashDetectsKnownMarkers(t *testing.T) {
	cases := map[string]bool{
		"/Users/alice/.Trash/project":                  true,
		"/home/bob/.local/share/Trash/files/project":   true,
		"/home/bob/projects/myapp":                     false,
		"":                                              false,
	}
	for cwd, want := range cases {
		if got := InTrash(cwd); got != want {
			t.Errorf("InTrash(%q) = %v, want %v", cwd, got, want)
		}
	}
}
