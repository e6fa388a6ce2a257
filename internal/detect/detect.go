// Package detect derives smart defaults for snapshot context (focus,
// expected output, constraints) from the current change set and recent
// commit subjects.
package detect

import (
	"strings"
)

// Commit is the minimal commit view detection scores against.
type Commit struct {
	Hash    string
	Message string
}

// Context holds auto-detected defaults for an interactive snapshot.
type Context struct {
	Focus       string
	Output      string
	Constraints []string
	FileCount   int
	CommitCount int
}

// focusPatterns score candidate focus areas. File matches count once,
// commit message matches twice.
var focusPatterns = []struct {
	focus    string
	keywords []string
}{
	{"Infrastructure hardening", []string{"terraform", "docker", "deploy", ".tf", "infra/", "k8s/", "helm/"}},
	{"API debugging", []string{"api", "endpoint", "handler", "lambda", "routes", "controllers/"}},
	{"Database optimization", []string{"sql", "database", "db/", "migration", "schema", "models/"}},
	{"Frontend polish", []string{"ui/", "components/", "css", "js", "react", "vue", "angular", "src/"}},
	{"Testing improvements", []string{"test", "spec", "pytest", "jest", "coverage", "__tests__/"}},
	{"Security hardening", []string{"auth", "security", "permission", "oauth", "jwt", "ssl", "crypto"}},
	{"Performance optimization", []string{"cache", "performance", "optimization", "benchmark", "profiling"}},
	{"Documentation updates", []string{"readme", "docs/", "documentation", ".md", "wiki/"}},
	{"Configuration management", []string{"config", "settings", "env", "yaml", "json", "toml"}},
}

// Detect computes defaults from modified files and recent commits.
func Detect(modifiedFiles []string, recentCommits []Commit) Context {
	return Context{
		Focus:       DetectFocus(modifiedFiles, recentCommits),
		Output:      SuggestOutput(modifiedFiles, recentCommits),
		Constraints: DetectConstraints(modifiedFiles),
		FileCount:   len(modifiedFiles),
		CommitCount: len(recentCommits),
	}
}

// DetectFocus picks the highest-scoring focus area. Ties resolve in
// pattern order; no signal at all falls back to infrastructure.
func DetectFocus(modifiedFiles []string, recentCommits []Commit) string {
	best := "Infrastructure hardening"
	bestScore := 0

	for _, p := range focusPatterns {
		score := 0
		for _, file := range modifiedFiles {
			lower := strings.ToLower(file)
			for _, kw := range p.keywords {
				if strings.Contains(lower, kw) {
					score++
				}
			}
		}
		for _, c := range recentCommits {
			msg := strings.ToLower(c.Message)
			for _, kw := range p.keywords {
				if strings.Contains(msg, kw) {
					score += 2
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = p.focus
		}
	}

	return best
}

// SuggestOutput proposes an expected deliverable. File signals take
// precedence over commit message signals.
func SuggestOutput(modifiedFiles []string, recentCommits []Commit) string {
	switch {
	case anyFile(modifiedFiles, func(f string) bool { return strings.Contains(f, "test") }):
		return "Comprehensive test coverage"
	case anyFile(modifiedFiles, func(f string) bool { return strings.HasSuffix(f, ".tf") || strings.Contains(f, "deploy") }):
		return "Deployment plan"
	case anyFile(modifiedFiles, func(f string) bool {
		return strings.Contains(f, "api") || strings.Contains(f, "handler") || strings.Contains(f, "lambda")
	}):
		return "Working API endpoint"
	case anyFile(modifiedFiles, func(f string) bool { return strings.Contains(f, "doc") || strings.Contains(f, "readme") }):
		return "Updated documentation"
	case anyFile(modifiedFiles, func(f string) bool { return strings.Contains(f, "db") || strings.Contains(f, "migration") }):
		return "Database migration"
	case anyFile(modifiedFiles, func(f string) bool {
		return strings.Contains(f, "config") || strings.HasSuffix(f, ".yml") || strings.HasSuffix(f, ".yaml")
	}):
		return "Configuration update"
	}

	var combined strings.Builder
	for _, c := range recentCommits {
		combined.WriteString(strings.ToLower(c.Message))
		combined.WriteByte(' ')
	}
	text := combined.String()
	switch {
	case strings.Contains(text, "fix") || strings.Contains(text, "bug"):
		return "Bug fix"
	case strings.Contains(text, "feature") || strings.Contains(text, "add"):
		return "New feature"
	case strings.Contains(text, "refactor") || strings.Contains(text, "cleanup"):
		return "Code refactoring"
	}

	return "Working implementation"
}

// DetectConstraints infers up to three constraints from the change set.
func DetectConstraints(modifiedFiles []string) []string {
	var constraints []string

	if anyFile(modifiedFiles, func(f string) bool { return strings.HasSuffix(f, ".tf") || strings.Contains(f, "docker") }) {
		constraints = append(constraints, "infrastructure safety")
	}
	if anyFile(modifiedFiles, func(f string) bool { return strings.Contains(f, "api") || strings.Contains(f, "endpoint") }) {
		constraints = append(constraints, "backward compatibility")
	}
	if anyFile(modifiedFiles, func(f string) bool { return strings.Contains(f, "db") || strings.Contains(f, "migration") }) {
		constraints = append(constraints, "data integrity")
	}
	for _, f := range modifiedFiles {
		if f == "requirements.txt" || f == "package.json" || f == "Dockerfile" || f == "go.mod" {
			constraints = append(constraints, "cost optimization")
			break
		}
	}

	if len(constraints) == 0 {
		constraints = []string{"maintainability", "performance"}
	}
	if len(constraints) > 3 {
		constraints = constraints[:3]
	}
	return constraints
}

func anyFile(files []string, match func(string) bool) bool {
	for _, f := range files {
		if match(strings.ToLower(f)) {
			return true
		}
	}
	return false
}
