package usagelimits

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestGetReturnsNilWithoutAnyCredential(t *testing.T) {
	t.Setenv(oauthTokenEnvVar, "")
	c := New()
	if got := c.Get(context.Background()); got != nil {
		t.Fatalf("expected nil usage with no credentials, got %+v", got)
	}
}

func TestGetMemoizesWithinTTL(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fiveHourUtilization":0.5,"weeklyUtilization":0.2}`))
	}))
	defer server.Close()

	t.Setenv(oauthTokenEnvVar, "test-token")
	c := New()
	c.endpoint = server.URL

	first := c.Get(context.Background())
	second := c.Get(context.Background())
	if first == nil || second == nil {
		t.Fatal("expected non-nil usage from both calls")
	}
	if hits != 1 {
		t.Fatalf("expected memoized second call to skip the network, got %d upstream hits", hits)
	}
}

func TestGetReturnsNilOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	t.Setenv(oauthTokenEnvVar, "test-token")
	c := New()
	c.endpoint = server.URL

	if got := c.Get(context.Background()); got != nil {
		t.Fatalf("expected nil usage on upstream 500, got %+v", got)
	}
}

func TestResolveTokenPrefersFileOverEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(oauthTokenEnvVar, "env-token")

	jacquesDir := dir + "/.jacques"
	if err := os.MkdirAll(jacquesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jacquesDir+"/credentials.json", []byte(`{"oauthToken":"file-token"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := resolveToken(); got != "file-token" {
		t.Fatalf("expected credentials file to take priority, got %q", got)
	}
}

func TestMemoTTLConstantIsThirtySeconds(t *testing.T) {
	if memoTTL != 30*time.Second {
		t.Fatalf("expected 30s memoization window, got %s", memoTTL)
	}
}
