package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"
)

// sseWriter frames server-sent events per §6: "event: <name>\ndata:
// <json>\n\n". It flushes after every event so a client sees progress as
// it happens rather than buffered at the end.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(`{"error":"encode failed"}`)
	}
	s.w.Write([]byte("event: " + event + "\n"))
	s.w.Write([]byte("data: "))
	s.w.Write(payload)
	s.w.Write([]byte("\n\n"))
	s.flusher.Flush()
}

func (s *sseWriter) progress(data interface{}) { s.send("progress", data) }
func (s *sseWriter) complete(data interface{}) { s.send("complete", data) }
func (s *sseWriter) errorEvent(msg string)      { s.send("error", map[string]string{"error": msg}) }
