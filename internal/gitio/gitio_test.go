package gitio

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLines(t *testing.T) {
	got := lines("a.go\n\n  b.go  \n\nc.go\n")
	want := []string{"a.go", "b.go", "c.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if lines("") != nil {
		t.Error("empty output should yield nil")
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", -3: "0", 7: "7", 42: "42", 1234: "1234"}
	for n, want := range cases {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestRepoNameFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/shop.git", "shop"},
		{"git@github.com:acme/shop.git", "shop"},
		{"https://example.com/group/sub/project/", "project"},
		{"local-repo", "local-repo"},
	}
	for _, tc := range cases {
		if got := repoNameFromURL(tc.url); got != tc.want {
			t.Errorf("repoNameFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestQueriesTolerateNonRepo(t *testing.T) {
	c := NewClient(t.TempDir())

	if got := c.DiffNames(false); got != nil {
		t.Errorf("diff names = %v", got)
	}
	if got := c.UntrackedFiles(); got != nil {
		t.Errorf("untracked = %v", got)
	}
	if got := c.Log(5, "%H|%s"); got != nil {
		t.Errorf("log = %v", got)
	}
}

func TestInfoFallsBackForNonRepo(t *testing.T) {
	dir := t.TempDir()
	info := Info(dir)
	if info.Name != filepath.Base(dir) {
		t.Errorf("name = %q", info.Name)
	}
	if info.Branch != "main" {
		t.Errorf("branch = %q", info.Branch)
	}
}
