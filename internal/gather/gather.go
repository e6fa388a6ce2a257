// Package gather builds the candidate file list for a snapshot.
//
// Candidates come from the version-control change-set plus a static set
// of always-important paths, filtered for relevance and held under a
// token budget. Scanning never fails: unreadable files are treated as
// binary and excluded.
package gather

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Droshow/copidock/internal/classify"
)

// DefaultBudget is the default token budget for embedded file content.
const DefaultBudget = 6000

// VCS is the change-set source. *gitio.Client satisfies it.
type VCS interface {
	DiffNames(staged bool) []string
	UntrackedFiles() []string
	DiffTreeLastCommit() []string
}

// Candidate is a file selected for inclusion in a snapshot.
type Candidate struct {
	Path            string
	EstimatedTokens int
	Category        classify.Category
}

// Stats reports counts at each filtering stage.
type Stats struct {
	TotalChanged      int
	AfterFiltering    int
	FinalCount        int
	SkippedBinary     int
	SkippedIrrelevant int
}

// skipExtensions are never useful snapshot content.
var skipExtensions = map[string]bool{
	".log": true, ".cache": true, ".tmp": true, ".lock": true,
	".pyc": true, ".pyo": true, ".pyd": true, ".so": true,
}

// skipDirectories excludes generated and dependency trees by path substring.
var skipDirectories = []string{
	"node_modules", ".git", "__pycache__", ".pytest_cache",
	"venv", ".venv", "dist", "build",
}

// alwaysImportantGlobs match files included regardless of change status.
var alwaysImportantGlobs = []string{
	"infra/*.tf",
	"package.json",
	"Makefile",
	"*.md",
	".github/workflows/*.yml",
	".github/workflows/*.yaml",
	"docker-compose*.yml",
	"Dockerfile",
}

// identityPaths are included whenever they exist on disk.
var identityPaths = []string{
	"README.md",
	"infra/main.tf",
	".copidock/state.json",
}

// Scanner gathers snapshot candidates from a repository.
type Scanner struct {
	root string
	vcs  VCS
}

// NewScanner creates a scanner for the repository at root.
func NewScanner(root string, vcs VCS) *Scanner {
	return &Scanner{root: root, vcs: vcs}
}

// Gather returns the budgeted candidate list and stage-by-stage stats.
// The sum of estimated tokens in the result never exceeds maxTokens.
func (s *Scanner) Gather(maxTokens int) ([]Candidate, Stats) {
	if maxTokens <= 0 {
		maxTokens = DefaultBudget
	}

	changed := s.changedFiles()
	all := s.withAlwaysImportant(changed)

	var stats Stats
	stats.TotalChanged = len(all)

	relevant := s.filterRelevant(all, &stats)
	stats.AfterFiltering = len(relevant)
	stats.SkippedIrrelevant = len(all) - len(relevant)

	final := s.enforceBudget(relevant, maxTokens)
	stats.FinalCount = len(final)

	return final, stats
}

// changedFiles unions staged, unstaged, and untracked paths, falling
// back to the last commit's paths when the working tree is clean.
func (s *Scanner) changedFiles() []string {
	seen := make(map[string]bool)
	for _, group := range [][]string{
		s.vcs.DiffNames(true),
		s.vcs.DiffNames(false),
		s.vcs.UntrackedFiles(),
	} {
		for _, p := range group {
			if strings.TrimSpace(p) != "" {
				seen[p] = true
			}
		}
	}

	if len(seen) == 0 {
		for _, p := range s.vcs.DiffTreeLastCommit() {
			if strings.TrimSpace(p) != "" {
				seen[p] = true
			}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// withAlwaysImportant unions the change-set with glob-matched structural
// files and the identity paths present on disk.
func (s *Scanner) withAlwaysImportant(changed []string) []string {
	seen := make(map[string]bool, len(changed))
	paths := make([]string, 0, len(changed))
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, p := range changed {
		add(p)
	}

	for _, pattern := range alwaysImportantGlobs {
		matches, err := doublestar.FilepathGlob(filepath.Join(s.root, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			rel, err := filepath.Rel(s.root, m)
			if err != nil {
				continue
			}
			add(filepath.ToSlash(rel))
		}
	}

	for _, p := range identityPaths {
		if _, err := os.Stat(filepath.Join(s.root, p)); err == nil {
			add(p)
		}
	}

	sort.Strings(paths)
	return paths
}

// filterRelevant drops skip-listed, missing, and binary files.
func (s *Scanner) filterRelevant(paths []string, stats *Stats) []string {
	var filtered []string
	for _, p := range paths {
		if shouldSkip(p) {
			continue
		}

		full := filepath.Join(s.root, p)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}

		if isBinary(full) {
			stats.SkippedBinary++
			continue
		}

		filtered = append(filtered, p)
	}
	return filtered
}

// enforceBudget keeps files under the token budget: ascending-size greedy
// accept with a strict linear cutoff at the first file that would exceed
// the budget.
func (s *Scanner) enforceBudget(paths []string, maxTokens int) []Candidate {
	candidates := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		candidates = append(candidates, Candidate{
			Path:            p,
			EstimatedTokens: s.estimateTokens(p),
			Category:        classify.Categorize(p),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EstimatedTokens < candidates[j].EstimatedTokens
	})

	var accepted []Candidate
	total := 0
	for _, c := range candidates {
		if total+c.EstimatedTokens > maxTokens {
			break
		}
		accepted = append(accepted, c)
		total += c.EstimatedTokens
	}
	return accepted
}

// estimateTokens guesses a file's token cost from its size (~4 bytes per
// token) without reading content.
func (s *Scanner) estimateTokens(path string) int {
	info, err := os.Stat(filepath.Join(s.root, path))
	if err != nil {
		return 0
	}
	return int(info.Size() / 4)
}

// shouldSkip reports whether a path is excluded by directory or extension.
func shouldSkip(path string) bool {
	for _, dir := range skipDirectories {
		if strings.Contains(path, dir) {
			return true
		}
	}
	return skipExtensions[strings.ToLower(filepath.Ext(path))]
}

// isBinary checks the first 1KB for a null byte. Unreadable files count
// as binary so a permissions race never aborts the scan.
func isBinary(fullPath string) bool {
	f, err := os.Open(fullPath)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return true
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// Paths extracts just the path strings from a candidate list.
func Paths(candidates []Candidate) []string {
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return paths
}
