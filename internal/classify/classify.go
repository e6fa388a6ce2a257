// Package classify assigns snapshot file candidates to categories.
package classify

import "strings"

// Category labels a file for template rule selection.
type Category string

const (
	Infrastructure Category = "Infrastructure"
	Backend        Category = "Backend/Lambda"
	Frontend       Category = "Frontend"
	Configuration  Category = "Configuration"
	Tests          Category = "Tests"
	Documentation  Category = "Documentation"
	Other          Category = "Other"
)

// RulePriority is the order template rules are matched against the
// categories present in a change-set.
var RulePriority = []Category{
	Infrastructure,
	Backend,
	Frontend,
	Tests,
	Configuration,
	Documentation,
}

// rule pairs a predicate with the category it assigns. Rules are
// evaluated in order; the first match wins.
type rule struct {
	matches  func(pathLower string) bool
	category Category
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var rules = []rule{
	{func(p string) bool {
		return containsAny(p, "infra/", ".tf", ".yml", ".yaml")
	}, Infrastructure},
	{func(p string) bool {
		return containsAny(p, "lambda/", "lambdas/", ".py", ".go") && !strings.Contains(p, "test")
	}, Backend},
	{func(p string) bool {
		return containsAny(p, ".js", ".jsx", ".ts", ".tsx", ".vue", ".react")
	}, Frontend},
	{func(p string) bool {
		return containsAny(p, "config", "requirements.txt", "package.json", "setup.py")
	}, Configuration},
	{func(p string) bool {
		return strings.Contains(p, "test")
	}, Tests},
	{func(p string) bool {
		return containsAny(p, ".md", ".rst", ".txt", "readme")
	}, Documentation},
}

// Categorize returns the category for a path. It is total: every path
// maps to exactly one category, defaulting to Other.
func Categorize(path string) Category {
	lower := strings.ToLower(path)
	for _, r := range rules {
		if r.matches(lower) {
			return r.category
		}
	}
	return Other
}

// GroupByCategory buckets paths by category, omitting empty buckets.
func GroupByCategory(paths []string) map[Category][]string {
	groups := make(map[Category][]string)
	for _, p := range paths {
		cat := Categorize(p)
		groups[cat] = append(groups[cat], p)
	}
	return groups
}
