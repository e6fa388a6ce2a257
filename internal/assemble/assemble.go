// Package assemble renders rehydratable snapshot markdown: YAML
// frontmatter, synthesized sections, and fenced source listings.
package assemble

import (
	"fmt"
	"strings"
	"time"

	"github.com/Droshow/copidock/internal/synth"
)

// Thread is the metadata stamped into every snapshot document.
type Thread struct {
	ID     string
	Name   string
	Goal   string
	Repo   string
	Branch string
}

// Source is one inlined file in a comprehensive snapshot.
type Source struct {
	Path     string
	Language string
	Content  string
}

// Meta identifies a single snapshot version.
type Meta struct {
	SnapshotID string
	Version    int
	CreatedAt  time.Time
	Message    string
}

// SnapshotKey builds the object key for a regular snapshot.
func SnapshotKey(threadID string, createdAt time.Time, version int) string {
	return fmt.Sprintf("threads/%s/%s/snapshot-v%03d.md", threadID, createdAt.UTC().Format("2006-01-02"), version)
}

// ComprehensiveKey builds the object key for a comprehensive snapshot.
func ComprehensiveKey(threadID string, createdAt time.Time, version int) string {
	return fmt.Sprintf("threads/%s/%s/comprehensive-v%03d.md", threadID, createdAt.UTC().Format("2006-01-02"), version)
}

// RehydrationKey builds the object key for a hydrated document.
func RehydrationKey(threadID, rehydrationID string, createdAt time.Time) string {
	return fmt.Sprintf("rehydrations/%s/%s-%s.md", threadID, rehydrationID, createdAt.UTC().Format("20060102-150405"))
}

// Regular renders the plain snapshot document: frontmatter, thread
// facts, and path references without inlined content.
func Regular(thread Thread, paths []string, meta Meta) string {
	var b strings.Builder

	writeFrontmatter(&b, thread, meta, `["snapshot"]`, nil, "4k")

	fmt.Fprintf(&b, "# Rehydrate: %s (v%d)\n\n", threadName(thread), meta.Version)
	if meta.Message != "" {
		fmt.Fprintf(&b, "**Message:** %s\n\n", meta.Message)
	}

	fmt.Fprintf(&b, "## Operator Instructions\n\nYou are working on: %s\n\n", goalOf(thread))
	fmt.Fprintf(&b, "## Current State\n\nThread: %s\nRepository: %s\nBranch: %s\n\n",
		thread.ID, repoOf(thread), branchOf(thread))

	if len(paths) > 0 {
		b.WriteString("## Sources\n\n")
		for i, p := range paths {
			fmt.Fprintf(&b, "### Source %d: %s\n\nFile path: %s\n\n", i+1, p, p)
		}
	}

	return b.String()
}

// Comprehensive renders the full snapshot: synthesized sections in
// fixed order followed by four-backtick fenced source content. The
// wider fence keeps embedded triple-backtick blocks intact.
func Comprehensive(thread Thread, sources []Source, sections synth.Sections, meta Meta) string {
	var b strings.Builder

	related := make([]string, 0, 10)
	for _, src := range sources {
		if len(related) == 10 {
			break
		}
		related = append(related, src.Path)
	}

	writeFrontmatter(&b, thread, meta, `["snapshot","rehydration","comprehensive"]`, related, "6k")

	fmt.Fprintf(&b, "# Rehydrate: %s (v%d)\n\n", threadName(thread), meta.Version)
	if meta.Message != "" {
		fmt.Fprintf(&b, "**Message:** %s\n\n", meta.Message)
	}

	for _, section := range []string{
		sections.OperatorInstructions,
		sections.CurrentState,
		sections.DecisionsConstraints,
		sections.OpenQuestions,
	} {
		if section != "" {
			b.WriteString(section)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Sources\n\n")
	for i, src := range sources {
		lang := src.Language
		if lang == "" {
			lang = "text"
		}
		fmt.Fprintf(&b, "### Source %d: %s\n\n", i+1, src.Path)
		fmt.Fprintf(&b, "````%s\n// filepath: %s\n%s\n````\n\n", lang, src.Path, src.Content)
	}

	b.WriteString("---\n\n*This is a comprehensive rehydratable snapshot with auto-generated synthesis sections. It contains the context, analysis, and state needed to continue this development thread.*\n")

	return b.String()
}

func writeFrontmatter(b *strings.Builder, thread Thread, meta Meta, tags string, relatedPaths []string, budgetHint string) {
	fmt.Fprintf(b, "---\nthread_id: %s\nsnapshot_id: %s\nversion: %d\ncreated_at: %s\nrepo: %s\nbranch: %s\ngoal: %q\ncontext_tags: %s\n",
		thread.ID, meta.SnapshotID, meta.Version,
		meta.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		repoOf(thread), branchOf(thread), goalOf(thread), tags)
	if len(relatedPaths) > 0 {
		b.WriteString("related_paths:")
		for _, p := range relatedPaths {
			fmt.Fprintf(b, "\n  - %s", p)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "token_budget_hint: %s\n---\n\n", budgetHint)
}

// ThreadName derives a filesystem-safe thread name from a goal: the
// first 50 characters restricted to alphanumerics, space, dash and
// underscore. An empty result falls back to a timestamped name.
func ThreadName(goal string, now time.Time) string {
	limit := goal
	if len(limit) > 50 {
		limit = limit[:50]
	}
	var b strings.Builder
	for _, r := range limit {
		if r == ' ' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = "thread-" + now.UTC().Format("20060102-1504")
	}
	return name
}

func threadName(t Thread) string {
	if t.Name != "" {
		return t.Name
	}
	return "Development Thread"
}

func goalOf(t Thread) string {
	if t.Goal != "" {
		return t.Goal
	}
	return "development task"
}

func repoOf(t Thread) string {
	if t.Repo != "" {
		return t.Repo
	}
	return "unknown"
}

func branchOf(t Thread) string {
	if t.Branch != "" {
		return t.Branch
	}
	return "main"
}
