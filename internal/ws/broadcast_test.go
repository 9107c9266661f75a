package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/registry"
)

// dialTestWS creates a test HTTP server that upgrades to WebSocket and
// returns the server-side connection. The caller must close both the
// server and the returned connection.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	_ = clientConn.Close()

	select {
	case serverConn := <-connCh:
		return srv, serverConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil
	}
}

func TestAddConsumerSendsInitialState(t *testing.T) {
	srv, conn := dialTestWS(t)
	defer srv.Close()

	h := NewHub(zerolog.Nop())
	sessions := []*registry.Session{{SessionID: "s1", WorkingDir: "/tmp/proj"}}
	c := h.AddConsumer(conn, sessions, "s1")
	defer h.Remove(c)

	if got := h.ConsumerCount(); got != 1 {
		t.Fatalf("expected 1 consumer, got %d", got)
	}
}

func TestNotifyBroadcastsSessionUpdateAndEnded(t *testing.T) {
	srv, conn := dialTestWS(t)
	defer srv.Close()

	h := NewHub(zerolog.Nop())
	c := h.AddConsumer(conn, nil, "")
	defer h.Remove(c)

	h.Notify([]*registry.Session{{SessionID: "s1", WorkingDir: "/tmp/proj"}}, nil)
	h.Notify(nil, []string{"s1"})

	if h.seq.Load() < 3 {
		t.Fatalf("expected sequence to advance across initial_state + 2 notifies, got %d", h.seq.Load())
	}
}

func TestDeliverDisconnectsConsumerOverBufferLimit(t *testing.T) {
	srv, conn := dialTestWS(t)
	defer srv.Close()

	h := NewHub(zerolog.Nop())
	c := h.AddConsumer(conn, nil, "")

	// Simulate an already-saturated send buffer: one more byte should
	// push it over the limit and force a disconnect.
	c.bufferedSize.Store(maxBufferedBytes)
	h.deliver(c, []byte("x"))

	if h.ConsumerCount() != 0 {
		t.Fatal("expected consumer over the buffer limit to be disconnected")
	}
}

func TestHubSequenceNumberIncrementsMonotonically(t *testing.T) {
	h := NewHub(zerolog.Nop())
	var seqs []uint64
	for i := 0; i < 5; i++ {
		seqs = append(seqs, h.seq.Add(1))
	}
	for i := 0; i < 5; i++ {
		if seqs[i] != uint64(i+1) {
			t.Errorf("seq[%d]: expected %d, got %d", i, i+1, seqs[i])
		}
	}
}

func TestSetPrivacyFilterAffectsNewBroadcasts(t *testing.T) {
	srv, conn := dialTestWS(t)
	defer srv.Close()

	h := NewHub(zerolog.Nop())
	c := h.AddConsumer(conn, nil, "")
	defer h.Remove(c)

	h.SetPrivacyFilter(&registry.PrivacyFilter{BlockedPaths: []string{"/tmp/*"}})
	filtered := h.privacyFilter().FilterSlice([]*registry.Session{{SessionID: "s1", WorkingDir: "/tmp/x"}})
	if len(filtered) != 0 {
		t.Fatal("expected blocked path to be filtered out")
	}
}
