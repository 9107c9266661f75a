//go:build !embed

package frontend

import "net/http"

// Handler returns nil when the binary was built without -tags embed; the
// gateway falls back to serving the GUI from disk via -dev instead.
func Handler() http.Handler {
	return nil
}
