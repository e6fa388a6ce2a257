package assemble

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Droshow/copidock/internal/synth"
)

var testTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestObjectKeys(t *testing.T) {
	if got := SnapshotKey("t-1", testTime, 7); got != "threads/t-1/2025-03-14/snapshot-v007.md" {
		t.Errorf("snapshot key = %q", got)
	}
	if got := ComprehensiveKey("t-1", testTime, 12); got != "threads/t-1/2025-03-14/comprehensive-v012.md" {
		t.Errorf("comprehensive key = %q", got)
	}
	if got := RehydrationKey("t-1", "r-9", testTime); got != "rehydrations/t-1/r-9-20250314-092653.md" {
		t.Errorf("rehydration key = %q", got)
	}
}

func TestRegular(t *testing.T) {
	thread := Thread{ID: "t-1", Name: "Fix login", Goal: "fix login flow", Repo: "shop", Branch: "main"}
	meta := Meta{SnapshotID: "s-1", Version: 3, CreatedAt: testTime, Message: "before refactor"}

	doc := Regular(thread, []string{"api/login.go", "api/session.go"}, meta)

	for _, want := range []string{
		"thread_id: t-1",
		"version: 3",
		`context_tags: ["snapshot"]`,
		"token_budget_hint: 4k",
		"# Rehydrate: Fix login (v3)",
		"**Message:** before refactor",
		"### Source 1: api/login.go",
		"### Source 2: api/session.go",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "````") {
		t.Error("regular snapshots must not inline content")
	}
}

func TestRegularDefaults(t *testing.T) {
	doc := Regular(Thread{ID: "t-1"}, nil, Meta{Version: 1, CreatedAt: testTime})

	for _, want := range []string{
		"# Rehydrate: Development Thread (v1)",
		"You are working on: development task",
		"Repository: unknown",
		"Branch: main",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "## Sources") {
		t.Error("no sources section without paths")
	}
}

func TestComprehensive(t *testing.T) {
	thread := Thread{ID: "t-1", Name: "Fix login", Goal: "fix login flow", Repo: "shop", Branch: "main"}
	meta := Meta{SnapshotID: "s-1", Version: 2, CreatedAt: testTime}
	sections := synth.Sections{
		OperatorInstructions: "## Operator Instructions\n\nwork carefully",
		CurrentState:         "## Current State\n\ntwo files changed",
		DecisionsConstraints: "## Decisions\n\nkeep it simple",
		OpenQuestions:        "## Open Questions\n\nnone",
	}
	sources := []Source{
		{Path: "api/login.go", Language: "go", Content: "package api"},
		{Path: "notes.txt", Content: "plain"},
	}

	doc := Comprehensive(thread, sources, sections, meta)

	for _, want := range []string{
		`context_tags: ["snapshot","rehydration","comprehensive"]`,
		"token_budget_hint: 6k",
		"related_paths:\n  - api/login.go\n  - notes.txt",
		"````go\n// filepath: api/login.go\npackage api\n````",
		"````text\n// filepath: notes.txt\nplain\n````",
		"*This is a comprehensive rehydratable snapshot",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}

	// Sections render in their fixed order.
	oi := strings.Index(doc, "work carefully")
	cs := strings.Index(doc, "two files changed")
	dc := strings.Index(doc, "keep it simple")
	oq := strings.Index(doc, "## Open Questions")
	if !(oi < cs && cs < dc && dc < oq) {
		t.Errorf("sections out of order: %d %d %d %d", oi, cs, dc, oq)
	}
}

func TestComprehensiveRelatedPathsCap(t *testing.T) {
	var sources []Source
	for i := 0; i < 14; i++ {
		sources = append(sources, Source{Path: fmt.Sprintf("pkg/file%02d.go", i), Content: "x"})
	}

	doc := Comprehensive(Thread{ID: "t-1"}, sources, synth.Sections{}, Meta{Version: 1, CreatedAt: testTime})

	if strings.Contains(doc, "related_paths:\n  - pkg/file00.go") == false {
		t.Error("related paths missing")
	}
	frontmatterEnd := strings.Index(doc[4:], "---")
	frontmatter := doc[:frontmatterEnd+4]
	if strings.Count(frontmatter, "  - pkg/") != 10 {
		t.Errorf("related_paths should cap at 10:\n%s", frontmatter)
	}
	// All 14 sources still render in the body.
	if strings.Count(doc, "### Source ") != 14 {
		t.Errorf("source count = %d", strings.Count(doc, "### Source "))
	}
}

func TestThreadName(t *testing.T) {
	cases := []struct {
		goal string
		want string
	}{
		{"Fix the login flow", "Fix the login flow"},
		{"ship v2.0 (fast!)", "ship v20 fast"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}
	for _, tc := range cases {
		if got := ThreadName(tc.goal, testTime); got != tc.want {
			t.Errorf("ThreadName(%q) = %q, want %q", tc.goal, got, tc.want)
		}
	}

	if got := ThreadName("!!!", testTime); got != "thread-20250314-0926" {
		t.Errorf("fallback = %q", got)
	}
}
