// Package usagelimits implements the Usage Limits Client (§4.12): OAuth
// credential resolution across a credentials file, the macOS keychain, and
// an environment variable, backing a 30s-memoized quota query.
package usagelimits

import (
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/jacquesd/jacques/internal/config"
)

const oauthTokenEnvVar = "CLAUDE_CODE_OAUTH_TOKEN"

type credentialsFile struct {
	OAuthToken string `json:"oauthToken"`
}

// resolveToken tries, in order: the credentials file, the macOS keychain,
// then the environment variable. Returns "" when none yield a token — the
// caller treats that as "no usage data available", never an error.
func resolveToken() string {
	if token := tokenFromFile(); token != "" {
		return token
	}
	if token := tokenFromKeychain(); token != "" {
		return token
	}
	return strings.TrimSpace(os.Getenv(oauthTokenEnvVar))
}

func tokenFromFile() string {
	data, err := os.ReadFile(config.CredentialsPath())
	if err != nil {
		return ""
	}
	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return ""
	}
	return strings.TrimSpace(creds.OAuthToken)
}

// tokenFromKeychain shells out to the macOS `security` CLI the way the
// teacher shells out to `tmux`/`git`; it's a silent no-op on every other
// platform since `security` won't resolve.
func tokenFromKeychain() string {
	path, err := exec.LookPath("security")
	if err != nil {
		return ""
	}
	out, err := exec.Command(path, "find-generic-password", "-s", "jacques", "-w").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
