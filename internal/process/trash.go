package process

import "strings"

// trashMarkers are path fragments that indicate a working directory has
// been moved to the platform trash.
var trashMarkers = []string{
	"/.Trash/",       // macOS
	"/.local/share/Trash/", // Linux (XDG trash spec)
	"/$Recycle.Bin/", // Windows
}

// InTrash reports whether cwd looks like it lives inside a platform trash
// directory.
func InTrash(cwd string) bool {
	if cwd == "" {
		return false
	}
	for _, marker := range trashMarkers {
		if strings.Contains(cwd, marker) {
			return true
		}
	}
	return false
}
