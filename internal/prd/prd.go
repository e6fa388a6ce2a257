// Package prd creates and manages Product Requirements Documents:
// strategic planning markdown stored under copidock/prds/ in the repo,
// with a CURRENT symlink pointing at the active one.
package prd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Droshow/copidock/internal/synth"
)

// Context captures the planning inputs stamped into the PRD.
type Context struct {
	ProjectName   string
	ThreadID      string
	Repo          string
	Branch        string
	Persona       string
	Focus         string
	Output        string
	Constraints   string
	Domain        string
	DomainContext map[string]string
}

// Dir returns (creating if needed) the prds directory under repoRoot.
func Dir(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, "copidock", "prds")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating prds directory: %w", err)
	}
	return dir, nil
}

// NewID returns a timestamped PRD identifier.
func NewID(now time.Time) string {
	return "prd-" + now.UTC().Format("20060102-150405")
}

// Filename builds the PRD file name from its creation time and a slug
// of the project name.
func Filename(projectName string, now time.Time) string {
	slug := projectName
	if len(slug) > 30 {
		slug = slug[:30]
	}
	slug = strings.ToLower(slug)
	for _, old := range []string{" ", "/", "_"} {
		slug = strings.ReplaceAll(slug, old, "-")
	}
	return now.UTC().Format("20060102-150405") + "-" + slug + ".md"
}

// Render builds the PRD markdown: YAML frontmatter, an optional domain
// requirements block, then the synthesized sections in fixed order.
func Render(ctx Context, sections synth.Sections, prdID string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "---\nprd_id: %s\nversion: v1\ncreated_at: %s\nproject_name: %q\nthread_id: %s\nrepo: %s\nbranch: %s\npersona: %s\n",
		prdID, now.UTC().Format("2006-01-02T15:04:05Z"), ctx.ProjectName,
		ctx.ThreadID, orUnknown(ctx.Repo), orDefault(ctx.Branch, "main"),
		orDefault(ctx.Persona, "senior-backend-dev"))
	writeYAMLValue(&b, "focus", ctx.Focus)
	writeYAMLValue(&b, "output", ctx.Output)
	writeYAMLValue(&b, "constraints", ctx.Constraints)
	if ctx.Domain != "" {
		fmt.Fprintf(&b, "domain: %s\n", ctx.Domain)
		if len(ctx.DomainContext) > 0 {
			b.WriteString("domain_context:\n")
			for _, key := range sortedKeys(ctx.DomainContext) {
				writeYAMLNested(&b, key, ctx.DomainContext[key])
			}
		}
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# PRD: %s\n\n## Executive Summary\n", ctx.ProjectName)

	if ctx.Domain != "" && len(ctx.DomainContext) > 0 {
		fmt.Fprintf(&b, "\n\n## Domain: %s\n\n**Domain-Specific Requirements:**\n\n", ctx.Domain)
		for _, key := range sortedKeys(ctx.DomainContext) {
			label := strings.ReplaceAll(key, "_", " ")
			fmt.Fprintf(&b, "- **%s**: %s\n", titleWords(label), ctx.DomainContext[key])
		}
		b.WriteString("\n")
	}

	for _, section := range []string{
		sections.OperatorInstructions,
		sections.CurrentState,
		sections.DecisionsConstraints,
		sections.OpenQuestions,
	} {
		if s := strings.TrimSpace(section); s != "" {
			b.WriteString("\n\n")
			b.WriteString(s)
		}
	}

	return b.String()
}

// Write saves PRD content and repoints the CURRENT symlink at it.
// Returns the path of the written file.
func Write(repoRoot, filename, content string) (string, error) {
	dir, err := Dir(repoRoot)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing prd: %w", err)
	}

	current := filepath.Join(dir, "CURRENT")
	if _, err := os.Lstat(current); err == nil {
		if err := os.Remove(current); err != nil {
			return "", fmt.Errorf("removing current link: %w", err)
		}
	}
	if err := os.Symlink(filename, current); err != nil {
		return "", fmt.Errorf("linking current prd: %w", err)
	}

	return path, nil
}

// Entry summarizes one stored PRD.
type Entry struct {
	Filename  string
	Version   string
	CreatedAt string
	ModTime   time.Time
}

// List returns PRDs newest first, reading version and creation time
// from each file's frontmatter where possible.
func List(repoRoot string) ([]Entry, error) {
	dir, err := Dir(repoRoot)
	if err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("listing prds: %w", err)
	}

	var entries []Entry
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		e := Entry{
			Filename: filepath.Base(path),
			Version:  "v1",
			ModTime:  info.ModTime(),
		}
		if data, err := os.ReadFile(path); err == nil {
			e.Version, e.CreatedAt = parseFrontmatter(string(data))
		}
		if e.CreatedAt == "" {
			e.CreatedAt = info.ModTime().UTC().Format("2006-01-02 15:04")
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Read returns the content of the named PRD, or the CURRENT one when
// name is empty or "CURRENT".
func Read(repoRoot, name string) (string, error) {
	dir, err := Dir(repoRoot)
	if err != nil {
		return "", err
	}
	if name == "" || strings.EqualFold(name, "CURRENT") {
		name = "CURRENT"
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("reading prd %s: %w", name, err)
	}
	return string(data), nil
}

func parseFrontmatter(content string) (version, createdAt string) {
	version = "v1"
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return version, ""
	}
	for _, line := range strings.Split(parts[1], "\n") {
		if v, ok := strings.CutPrefix(line, "version:"); ok {
			version = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "created_at:"); ok {
			createdAt = strings.TrimSpace(v)
		}
	}
	return version, createdAt
}

func writeYAMLValue(b *strings.Builder, key, value string) {
	if strings.Contains(value, "\n") {
		fmt.Fprintf(b, "%s: |\n", key)
		for _, line := range strings.Split(value, "\n") {
			fmt.Fprintf(b, "  %s\n", line)
		}
		return
	}
	fmt.Fprintf(b, "%s: %q\n", key, value)
}

func writeYAMLNested(b *strings.Builder, key, value string) {
	if strings.Contains(value, "\n") {
		fmt.Fprintf(b, "  %s: |\n", key)
		for _, line := range strings.Split(value, "\n") {
			fmt.Fprintf(b, "    %s\n", line)
		}
		return
	}
	fmt.Fprintf(b, "  %s: %q\n", key, value)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
