package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"
)

// decodeJSON decodes the request body into v, treating an empty body as a
// no-op so handlers can accept bodiless POSTs.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
