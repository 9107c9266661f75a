// Package config loads and resolves ~/.jacques/config.json, the daemon's
// single configuration file (§6).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jacquesd/jacques/internal/registry"
)

// DefaultContextWindow is the fallback context window size (in tokens) used
// when no model-specific entry or "default" key is found in the config.
const DefaultContextWindow = 200000

type Config struct {
	Server       ServerConfig       `json:"server"`
	Monitor      MonitorConfig      `json:"monitor"`
	Sources      SourcesConfig      `json:"sources"`
	Models       map[string]int     `json:"models"`
	TokenNorm    TokenNormConfig    `json:"tokenNormalization"`
	Privacy      PrivacyConfig      `json:"privacy"`
	Notifications NotificationSettings `json:"notifications"`

	// RootPath is the project root stored and reported by
	// /api/config/root-path. Empty means "report catalog.ProjectsRoot".
	// The catalog indexer and the project listing do not read it; they
	// always scan catalog.ProjectsRoot.
	RootPath string `json:"rootPath,omitempty"`
}

// PrivacyConfig controls what session metadata is exposed to connected clients.
type PrivacyConfig struct {
	MaskWorkingDirs bool     `json:"maskWorkingDirs"`
	MaskSessionIDs  bool     `json:"maskSessionIds"`
	MaskPIDs        bool     `json:"maskPids"`
	MaskTerminalIDs bool     `json:"maskTerminalIds"`
	AllowedPaths    []string `json:"allowedPaths"`
	BlockedPaths    []string `json:"blockedPaths"`
}

// NewPrivacyFilter converts the config into a registry.PrivacyFilter.
func (p *PrivacyConfig) NewPrivacyFilter() *registry.PrivacyFilter {
	return &registry.PrivacyFilter{
		MaskWorkingDirs: p.MaskWorkingDirs,
		MaskSessionIDs:  p.MaskSessionIDs,
		MaskPIDs:        p.MaskPIDs,
		MaskTerminalIDs: p.MaskTerminalIDs,
		AllowedPaths:    p.AllowedPaths,
		BlockedPaths:    p.BlockedPaths,
	}
}

// NotificationSettings mirrors the §3 data model: per-category enablement,
// thresholds, and cooldown-relevant knobs.
type NotificationSettings struct {
	Enabled                bool            `json:"enabled"`
	Categories             map[string]bool `json:"categories"`
	LargeOperationThreshold int            `json:"largeOperationThreshold"`
	ContextThresholds      []float64       `json:"contextThresholds"`
	BugAlertThreshold      int             `json:"bugAlertThreshold"`
}

// TokenNormConfig controls how token counts are resolved for each agent
// source. Sources that report real usage data use "usage" (the default for
// Claude Code). Sources without reliable token counts use "estimate" or
// "message_count" to derive progress from message counts.
type TokenNormConfig struct {
	Strategies       map[string]string `json:"strategies"`
	TokensPerMessage int               `json:"tokensPerMessage"`
}

type SourcesConfig struct {
	ClaudeCode bool `json:"claudeCode"`
	Dispatch   bool `json:"dispatch"`
	Other      bool `json:"other"`
}

type ServerConfig struct {
	WSPort         int      `json:"wsPort"`
	HTTPPort       int      `json:"httpPort"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowedOrigins"`
	AuthToken      string   `json:"authToken"`
	MaxConnections int      `json:"maxConnections"`
}

type MonitorConfig struct {
	ProcessVerifyInterval MillisDuration `json:"processVerifyIntervalMs"`
	CleanupInterval       MillisDuration `json:"cleanupIntervalMs"`
	IdleTimeout           MillisDuration `json:"idleTimeoutMs"`
	IdleThreshold         MillisDuration `json:"idleThresholdMs"`
	PendingBypassTTL      MillisDuration `json:"pendingBypassTtlMs"`
	PidlessGracePeriod    MillisDuration `json:"pidlessGracePeriodMs"`
	MaxIdleMinutes        MillisDuration `json:"maxIdleMinutes"`
}

// Load reads and parses path as JSON, starting from defaultConfig so any
// field the file omits keeps its default value.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the default config
// unmodified if the file does not exist yet.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

// Save writes cfg to path atomically (write to a temp file in the same
// directory, then rename), matching the durable-write policy used
// elsewhere for the project index and global session index.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			WSPort:         4242,
			HTTPPort:       4243,
			Host:           "127.0.0.1",
			MaxConnections: 100,
		},
		Monitor: MonitorConfig{
			ProcessVerifyInterval: MillisDuration(30 * time.Second),
			CleanupInterval:       MillisDuration(10 * time.Second),
			IdleTimeout:           MillisDuration(4 * time.Hour),
			IdleThreshold:         MillisDuration(5 * time.Minute),
			PendingBypassTTL:      MillisDuration(60 * time.Second),
			PidlessGracePeriod:    MillisDuration(60 * time.Second),
			MaxIdleMinutes:        MillisDuration(240 * time.Minute),
		},
		Sources: SourcesConfig{
			ClaudeCode: true,
			Dispatch:   false,
			Other:      false,
		},
		Models: map[string]int{
			"default": DefaultContextWindow,
		},
		TokenNorm: TokenNormConfig{
			Strategies: map[string]string{
				"claude_code": "usage",
				"default":     "estimate",
			},
			TokensPerMessage: 250,
		},
		Notifications: NotificationSettings{
			Enabled: true,
			Categories: map[string]bool{
				"context":      true,
				"operation":    true,
				"plan":         true,
				"auto-compact": true,
				"handoff":      true,
				"bug-alert":    true,
			},
			LargeOperationThreshold: 50000,
			ContextThresholds:       []float64{50, 75, 90},
			BugAlertThreshold:       3,
		},
	}
}

// MaxContextTokens resolves the context window size for a model.
// Resolution order: exact match → longest prefix match (config keys ending
// with "*") → "default" key → DefaultContextWindow.
func (c *Config) MaxContextTokens(model string) int {
	if n, ok := c.Models[model]; ok {
		return n
	}

	bestLen, bestVal := 0, 0
	for key, val := range c.Models {
		if !strings.HasSuffix(key, "*") {
			continue
		}
		prefix := strings.TrimSuffix(key, "*")
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			bestLen = len(prefix)
			bestVal = val
		}
	}
	if bestLen > 0 {
		return bestVal
	}

	if n, ok := c.Models["default"]; ok {
		return n
	}
	return DefaultContextWindow
}

// TokenStrategy returns the configured token normalization strategy for the
// given source name, falling back to "default" then "estimate".
func (c *Config) TokenStrategy(source string) string {
	if s, ok := c.TokenNorm.Strategies[source]; ok {
		return s
	}
	if s, ok := c.TokenNorm.Strategies["default"]; ok {
		return s
	}
	return "estimate"
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jacques")
}

// DefaultConfigPath returns ~/.jacques/config.json.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// CredentialsPath returns ~/.jacques/credentials.json, consulted by the
// Usage Limits Client.
func CredentialsPath() string {
	return filepath.Join(defaultConfigDir(), "credentials.json")
}

// Diff compares two configs and returns human-readable descriptions of
// what changed, for the hot-reload log line on SIGHUP.
func Diff(old, next *Config) []string {
	var changes []string

	for k, v := range next.Models {
		if ov, ok := old.Models[k]; !ok {
			changes = append(changes, fmt.Sprintf("models: added %s=%d", k, v))
		} else if ov != v {
			changes = append(changes, fmt.Sprintf("models: %s changed %d -> %d", k, ov, v))
		}
	}
	for k := range old.Models {
		if _, ok := next.Models[k]; !ok {
			changes = append(changes, fmt.Sprintf("models: removed %s", k))
		}
	}

	if old.Sources != next.Sources {
		changes = append(changes, fmt.Sprintf("sources: %+v -> %+v", old.Sources, next.Sources))
	}

	if old.Privacy.MaskWorkingDirs != next.Privacy.MaskWorkingDirs {
		changes = append(changes, fmt.Sprintf("privacy.maskWorkingDirs: %v -> %v", old.Privacy.MaskWorkingDirs, next.Privacy.MaskWorkingDirs))
	}
	if old.Privacy.MaskSessionIDs != next.Privacy.MaskSessionIDs {
		changes = append(changes, fmt.Sprintf("privacy.maskSessionIds: %v -> %v", old.Privacy.MaskSessionIDs, next.Privacy.MaskSessionIDs))
	}
	if !slices.Equal(old.Privacy.AllowedPaths, next.Privacy.AllowedPaths) {
		changes = append(changes, fmt.Sprintf("privacy.allowedPaths: %v -> %v", old.Privacy.AllowedPaths, next.Privacy.AllowedPaths))
	}
	if !slices.Equal(old.Privacy.BlockedPaths, next.Privacy.BlockedPaths) {
		changes = append(changes, fmt.Sprintf("privacy.blockedPaths: %v -> %v", old.Privacy.BlockedPaths, next.Privacy.BlockedPaths))
	}

	if old.Notifications.Enabled != next.Notifications.Enabled {
		changes = append(changes, fmt.Sprintf("notifications.enabled: %v -> %v", old.Notifications.Enabled, next.Notifications.Enabled))
	}
	for k, v := range next.Notifications.Categories {
		if ov, ok := old.Notifications.Categories[k]; !ok || ov != v {
			changes = append(changes, fmt.Sprintf("notifications.categories.%s: %v -> %v", k, ov, v))
		}
	}

	if old.Monitor.IdleTimeout != next.Monitor.IdleTimeout {
		changes = append(changes, fmt.Sprintf("monitor.idleTimeout: %s -> %s", old.Monitor.IdleTimeout.Duration(), next.Monitor.IdleTimeout.Duration()))
	}
	if old.Monitor.IdleThreshold != next.Monitor.IdleThreshold {
		changes = append(changes, fmt.Sprintf("monitor.idleThreshold: %s -> %s", old.Monitor.IdleThreshold.Duration(), next.Monitor.IdleThreshold.Duration()))
	}

	return changes
}
