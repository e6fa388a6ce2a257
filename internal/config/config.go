// Package config handles client configuration profiles and per-repo
// thread state.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// DefaultTimeout bounds every request to the backend.
const DefaultTimeout = 15 * time.Second

// Profile is one named backend configuration.
type Profile struct {
	APIBase     string `yaml:"api_base"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// File is the on-disk config layout: a map of named profiles.
type File struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Timeout returns the profile's request timeout.
func (p Profile) Timeout() time.Duration {
	if p.TimeoutSecs > 0 {
		return time.Duration(p.TimeoutSecs) * time.Second
	}
	return DefaultTimeout
}

// Path returns the config file location, honoring COPIDOCK_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("COPIDOCK_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "copidock", "config.yml"), nil
}

// LoadProfile reads the named profile. A missing config file yields an
// empty profile rather than an error; environment variables
// COPIDOCK_API_BASE, COPIDOCK_API_KEY and COPIDOCK_TIMEOUT_SECS
// override file values.
func LoadProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}

	var p Profile

	path, err := Path()
	if err != nil {
		return Profile{}, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file yet; env vars may still supply everything.
	case err != nil:
		return Profile{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		var file File
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Profile{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
		p = file.Profiles[name]
	}

	if v := os.Getenv("COPIDOCK_API_BASE"); v != "" {
		p.APIBase = v
	}
	if v := os.Getenv("COPIDOCK_API_KEY"); v != "" {
		p.APIKey = v
	}
	if v := os.Getenv("COPIDOCK_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			p.TimeoutSecs = secs
		}
	}

	return p, nil
}

// State is the per-repo thread state kept in .copidock/state.json.
type State struct {
	ThreadID   string `json:"thread_id,omitempty"`
	ThreadName string `json:"thread_name,omitempty"`
	Goal       string `json:"goal,omitempty"`
	Repo       string `json:"repo,omitempty"`
	Branch     string `json:"branch,omitempty"`
	ActivePRD  string `json:"active_prd,omitempty"`
	PRDVersion string `json:"prd_version,omitempty"`
}

// FindRepoRoot walks up from dir looking for a .git entry. When none is
// found the starting directory is returned.
func FindRepoRoot(dir string) string {
	current, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for p := current; ; {
		if _, err := os.Stat(filepath.Join(p, ".git")); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return current
		}
		p = parent
	}
}

func statePath(repoRoot string) string {
	return filepath.Join(repoRoot, ".copidock", "state.json")
}

// LoadState reads thread state. Missing or corrupt state yields the
// zero value.
func LoadState(repoRoot string) State {
	data, err := os.ReadFile(statePath(repoRoot))
	if err != nil {
		return State{}
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}
	}
	return s
}

// SaveState writes thread state, creating .copidock if needed.
func SaveState(repoRoot string, s State) error {
	path := statePath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}
