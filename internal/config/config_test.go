package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProfileFromFile(t *testing.T) {
	dir := t.TempDir()
	cfg := `
profiles:
  default:
    api_base: https://api.example.com
    api_key: secret
    timeout_secs: 30
  staging:
    api_base: https://staging.example.com
`
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COPIDOCK_CONFIG", path)

	p, err := LoadProfile("")
	if err != nil {
		t.Fatal(err)
	}
	if p.APIBase != "https://api.example.com" || p.APIKey != "secret" {
		t.Errorf("default profile = %+v", p)
	}
	if p.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", p.Timeout())
	}

	staging, err := LoadProfile("staging")
	if err != nil {
		t.Fatal(err)
	}
	if staging.APIBase != "https://staging.example.com" {
		t.Errorf("staging profile = %+v", staging)
	}
	if staging.Timeout() != DefaultTimeout {
		t.Errorf("default timeout = %v", staging.Timeout())
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	t.Setenv("COPIDOCK_CONFIG", filepath.Join(t.TempDir(), "absent.yml"))

	p, err := LoadProfile("default")
	if err != nil {
		t.Fatalf("missing config must not fail: %v", err)
	}
	if p.APIBase != "" {
		t.Errorf("profile = %+v", p)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	cfg := "profiles:\n  default:\n    api_base: https://file.example.com\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COPIDOCK_CONFIG", path)
	t.Setenv("COPIDOCK_API_BASE", "https://env.example.com")
	t.Setenv("COPIDOCK_TIMEOUT_SECS", "5")

	p, err := LoadProfile("default")
	if err != nil {
		t.Fatal(err)
	}
	if p.APIBase != "https://env.example.com" {
		t.Errorf("api base = %q", p.APIBase)
	}
	if p.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v", p.Timeout())
	}
}

func TestStateRoundTrip(t *testing.T) {
	root := t.TempDir()

	s := State{ThreadID: "t-1", ThreadName: "Fix login", Goal: "fix login", Repo: "shop", Branch: "main"}
	if err := SaveState(root, s); err != nil {
		t.Fatal(err)
	}

	got := LoadState(root)
	if got != s {
		t.Errorf("got %+v, want %+v", got, s)
	}
}

func TestLoadStateCorrupt(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".copidock"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".copidock", "state.json"), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := LoadState(root); got != (State{}) {
		t.Errorf("corrupt state should load as zero, got %+v", got)
	}
}

func TestFindRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if got := FindRepoRoot(nested); got != root {
		t.Errorf("got %q, want %q", got, root)
	}
}

func TestFindRepoRootNoGit(t *testing.T) {
	dir := t.TempDir()
	got := FindRepoRoot(dir)
	abs, _ := filepath.Abs(dir)
	if got != abs {
		t.Errorf("got %q, want %q", got, abs)
	}
}
