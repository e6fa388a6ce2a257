package commits

import (
	"regexp"
	"strings"
)

// UrgencyIndicator records a commit containing an urgency keyword.
type UrgencyIndicator struct {
	Hash    string // shortened to 8 chars
	Word    string
	Subject string
}

// Patterns aggregates commit history for context analysis.
type Patterns struct {
	FixCommits      int
	FeatureCommits  int
	RefactorCommits int
	TestCommits     int
	DocsCommits     int
	ConfigCommits   int
	CommonWords     map[string]int
	Urgency         []UrgencyIndicator
	Intent          string // feature, bugfix, refactor, docs, test, config, general
	UrgencyLevel    string // normal or high
	CommitCount     int
	KeywordsFound   int
}

var urgencyWords = []string{"urgent", "critical", "hotfix", "emergency", "asap", "breaking"}

// urgentLevelWords escalate UrgencyLevel to high; "breaking" marks an
// indicator but does not by itself raise the level.
var urgentLevelWords = []string{"urgent", "critical", "hotfix", "emergency", "asap"}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true,
}

var wordRe = regexp.MustCompile(`\b\w{3,}\b`)

var intentPatterns = []struct {
	intent   string
	keywords []string
}{
	{"feature", []string{"add", "implement", "create", "new"}},
	{"bugfix", []string{"fix", "bug", "issue", "resolve", "correct"}},
	{"refactor", []string{"refactor", "clean", "improve", "optimize"}},
	{"docs", []string{"docs", "documentation", "readme", "comment"}},
	{"test", []string{"test", "testing", "spec", "coverage"}},
	{"config", []string{"config", "setup", "deploy", "ci", "build"}},
}

// AnalyzePatterns computes aggregate statistics over recent commits:
// per-type counts, a stopword-filtered word histogram, urgency
// indicators, and the dominant intent.
func AnalyzePatterns(records []Record) Patterns {
	p := Patterns{
		CommonWords:  make(map[string]int),
		Intent:       "unknown",
		UrgencyLevel: "normal",
		CommitCount:  len(records),
	}
	if len(records) == 0 {
		return p
	}

	var combined strings.Builder
	for _, rec := range records {
		combined.WriteString(strings.ToLower(rec.Subject))
		combined.WriteByte(' ')

		subject := strings.ToLower(rec.Subject)
		if subject == "" {
			continue
		}

		switch rec.Type {
		case TypeFix:
			p.FixCommits++
		case TypeFeat:
			p.FeatureCommits++
		case TypeRefactor:
			p.RefactorCommits++
		case TypeTest:
			p.TestCommits++
		case TypeDocs:
			p.DocsCommits++
		case TypeConfig:
			p.ConfigCommits++
		}

		for _, word := range urgencyWords {
			if strings.Contains(subject, word) {
				p.Urgency = append(p.Urgency, UrgencyIndicator{
					Hash:    shortHash(rec.Hash),
					Word:    word,
					Subject: rec.Subject,
				})
			}
		}

		for _, word := range wordRe.FindAllString(subject, -1) {
			if !stopwords[word] {
				p.CommonWords[word]++
			}
		}
	}

	combinedText := combined.String()

	p.Intent = "general"
	maxMatches := 0
	for _, ip := range intentPatterns {
		matches := 0
		for _, kw := range ip.keywords {
			if strings.Contains(combinedText, kw) {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			p.Intent = ip.intent
		}
	}
	p.KeywordsFound = maxMatches

	for _, word := range urgentLevelWords {
		if strings.Contains(combinedText, word) {
			p.UrgencyLevel = "high"
			break
		}
	}

	return p
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
