// Package commits parses and classifies recent git history.
package commits

import (
	"regexp"
	"strings"
)

// Type labels a commit by its dominant intent.
type Type string

const (
	TypeFix      Type = "fix"
	TypeFeat     Type = "feat"
	TypeRefactor Type = "refactor"
	TypeTest     Type = "test"
	TypeDocs     Type = "docs"
	TypeConfig   Type = "config"
	TypeOther    Type = "other"
)

// Record is one classified commit.
type Record struct {
	Hash           string
	Subject        string
	Body           string
	Author         string
	Email          string
	TimeAgo        string
	Type           Type
	Scopes         []string
	BreakingChange bool
	ClosesIssue    bool
}

// LogSource supplies raw commit records. *gitio.Client satisfies it.
type LogSource interface {
	Log(limit int, format string) []string
}

// logFormat captures hash, subject, relative time, author, email on the
// first line and the body on subsequent lines.
const logFormat = "%H|%s|%ar|%an|%ae%n%b"

// typeRule pairs a commit type with its subject keywords. Rules are
// checked in order; the first keyword hit decides the type.
type typeRule struct {
	commitType Type
	keywords   []string
}

var typeRules = []typeRule{
	{TypeFix, []string{"fix", "bug", "error", "issue", "resolve"}},
	{TypeFeat, []string{"feat", "feature", "add", "implement", "new"}},
	{TypeRefactor, []string{"refactor", "cleanup", "improve", "optimize"}},
	{TypeTest, []string{"test", "spec", "coverage", "unit", "integration"}},
	{TypeDocs, []string{"doc", "readme", "comment", "documentation"}},
	{TypeConfig, []string{"config", "setup", "env", "deploy", "build"}},
}

// scopeGroups are checked independently: a commit may carry any number
// of scopes.
var scopeGroups = []struct {
	scope    string
	keywords []string
}{
	{"api", []string{"api", "endpoint", "route", "handler"}},
	{"ui", []string{"ui", "frontend", "component", "view"}},
	{"db", []string{"db", "database", "migration", "schema", "sql"}},
	{"auth", []string{"auth", "login", "permission", "token"}},
	{"infra", []string{"infra", "terraform", "docker", "deploy", "ci"}},
}

var breakingMarkers = []string{"breaking change", "breaking", "major", "!"}

var closesIssueRe = regexp.MustCompile(`(?i)(close|closes|fix|fixes|resolve|resolves)\s+#?\d+`)

// Analyze retrieves and classifies the last limit commits. Any git
// failure yields an empty list; history is optional input downstream.
func Analyze(src LogSource, limit int) []Record {
	if limit <= 0 {
		limit = 10
	}

	var records []Record
	for _, raw := range src.Log(limit, logFormat) {
		rec, ok := parseRecord(raw)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// parseRecord splits one raw log record into a classified Record.
func parseRecord(raw string) (Record, bool) {
	head, body, _ := strings.Cut(raw, "\n")
	fields := strings.SplitN(head, "|", 5)
	if len(fields) < 5 {
		return Record{}, false
	}

	rec := Record{
		Hash:    strings.TrimSpace(fields[0]),
		Subject: strings.TrimSpace(fields[1]),
		TimeAgo: strings.TrimSpace(fields[2]),
		Author:  strings.TrimSpace(fields[3]),
		Email:   strings.TrimSpace(fields[4]),
		Body:    strings.TrimSpace(body),
	}
	if rec.Hash == "" {
		return Record{}, false
	}

	rec.Type = ClassifyType(rec.Subject)
	rec.Scopes = detectScopes(rec.Subject + " " + rec.Body)
	rec.BreakingChange = detectBreaking(rec.Subject + " " + rec.Body)
	rec.ClosesIssue = closesIssueRe.MatchString(rec.Subject + " " + rec.Body)
	return rec, true
}

// ClassifyType maps a commit subject to its type. First matching rule
// wins; idempotent on identical input.
func ClassifyType(subject string) Type {
	lower := strings.ToLower(subject)
	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.commitType
			}
		}
	}
	return TypeOther
}

func detectScopes(text string) []string {
	lower := strings.ToLower(text)
	var scopes []string
	for _, group := range scopeGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				scopes = append(scopes, group.scope)
				break
			}
		}
	}
	return scopes
}

func detectBreaking(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range breakingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
