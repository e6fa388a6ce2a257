package gather

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeVCS struct {
	staged    []string
	unstaged  []string
	untracked []string
	lastTree  []string
}

func (f fakeVCS) DiffNames(staged bool) []string {
	if staged {
		return f.staged
	}
	return f.unstaged
}

func (f fakeVCS) UntrackedFiles() []string  { return f.untracked }
func (f fakeVCS) DiffTreeLastCommit() []string { return f.lastTree }

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	full := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGatherUnionsChangeSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.go", "package b\n")
	writeFile(t, root, "c.go", "package c\n")

	vcs := fakeVCS{
		staged:    []string{"a.go"},
		unstaged:  []string{"b.go", "a.go"},
		untracked: []string{"c.go"},
	}

	candidates, stats := NewScanner(root, vcs).Gather(DefaultBudget)
	if stats.FinalCount != 3 {
		t.Fatalf("final count = %d, candidates = %v", stats.FinalCount, Paths(candidates))
	}
}

func TestGatherFallsBackToLastCommit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "only.go", "package only\n")

	vcs := fakeVCS{lastTree: []string{"only.go"}}

	candidates, _ := NewScanner(root, vcs).Gather(DefaultBudget)
	if len(candidates) != 1 || candidates[0].Path != "only.go" {
		t.Errorf("candidates = %v", Paths(candidates))
	}
}

func TestGatherSkipsBinaryAndSkipListed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.go", "package ok\n")
	writeFile(t, root, "blob.bin", "ab\x00cd")
	writeFile(t, root, "debug.log", "noise\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = 1\n")

	vcs := fakeVCS{unstaged: []string{"ok.go", "blob.bin", "debug.log", "node_modules/pkg/index.js", "gone.go"}}

	candidates, stats := NewScanner(root, vcs).Gather(DefaultBudget)
	if len(candidates) != 1 || candidates[0].Path != "ok.go" {
		t.Errorf("candidates = %v", Paths(candidates))
	}
	if stats.SkippedBinary != 1 {
		t.Errorf("skipped binary = %d", stats.SkippedBinary)
	}
}

func TestGatherIncludesAlwaysImportant(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Project\n")
	writeFile(t, root, "infra/main.tf", "resource {}\n")
	writeFile(t, root, "changed.go", "package changed\n")

	vcs := fakeVCS{unstaged: []string{"changed.go"}}

	candidates, _ := NewScanner(root, vcs).Gather(DefaultBudget)
	paths := Paths(candidates)
	for _, want := range []string{"README.md", "infra/main.tf", "changed.go"} {
		found := false
		for _, p := range paths {
			if p == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s in %v", want, paths)
		}
	}
}

func TestGatherBudgetIsNeverExceeded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", strings.Repeat("x", 40))    // ~10 tokens
	writeFile(t, root, "medium.go", strings.Repeat("x", 200))  // ~50 tokens
	writeFile(t, root, "large.go", strings.Repeat("x", 4000))  // ~1000 tokens

	vcs := fakeVCS{unstaged: []string{"small.go", "medium.go", "large.go"}}

	budget := 100
	candidates, _ := NewScanner(root, vcs).Gather(budget)

	total := 0
	for _, c := range candidates {
		total += c.EstimatedTokens
	}
	if total > budget {
		t.Errorf("budget exceeded: %d > %d", total, budget)
	}
	// Smallest files are preferred; the large one cannot fit.
	for _, c := range candidates {
		if c.Path == "large.go" {
			t.Error("large.go should not fit the budget")
		}
	}
	if len(candidates) != 2 {
		t.Errorf("candidates = %v", Paths(candidates))
	}
}

func TestShouldSkip(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"src/app.py", false},
		{"venv/lib/mod.py", true},
		{"app.pyc", true},
		{"build/out.js", true},
		{"pipeline.lock", true},
	}
	for _, tc := range cases {
		if got := shouldSkip(tc.path); got != tc.want {
			t.Errorf("shouldSkip(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
