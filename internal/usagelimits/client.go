package usagelimits

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const (
	memoTTL        = 30 * time.Second
	requestTimeout = 10 * time.Second
	usageEndpoint  = "https://api.anthropic.com/api/oauth/usage"
)

// Usage mirrors the upstream quota response surfaced at GET /api/usage.
type Usage struct {
	FiveHourUtilization  float64 `json:"fiveHourUtilization"`
	WeeklyUtilization    float64 `json:"weeklyUtilization"`
	FiveHourResetsAt     string  `json:"fiveHourResetsAt,omitempty"`
	WeeklyResetsAt       string  `json:"weeklyResetsAt,omitempty"`
}

// Client polls the upstream usage endpoint, memoizing the result for
// memoTTL. Every failure mode (missing credentials, network error,
// malformed response) resolves to a nil Usage, never an error return to
// callers outside the package — matching §4.12's "returns null on any
// failure" contract.
type Client struct {
	httpClient *http.Client
	endpoint   string

	mu        sync.Mutex
	cached    *Usage
	fetchedAt time.Time
}

// New builds a Client with the 10s upstream-call timeout from §5.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		endpoint:   usageEndpoint,
	}
}

// Get returns the memoized usage snapshot, refreshing it when stale. It
// never panics or returns an error: on any failure, the result is nil.
func (c *Client) Get(ctx context.Context) *Usage {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < memoTTL {
		cached := c.cached
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	token := resolveToken()
	if token == "" {
		return nil
	}

	usage := c.fetch(ctx, token)

	c.mu.Lock()
	if usage != nil {
		c.cached = usage
		c.fetchedAt = time.Now()
	}
	c.mu.Unlock()

	return usage
}

func (c *Client) fetch(ctx context.Context, token string) *Usage {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var usage Usage
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil
	}
	return &usage
}
