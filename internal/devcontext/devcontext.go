// Package devcontext determines what kind of development work is in
// flight from the changed file set and recent commit activity.
package devcontext

import (
	"strings"

	"github.com/Droshow/copidock/internal/commits"
)

// WorkArea names the dominant area of current changes.
type WorkArea string

const (
	AreaAPI      WorkArea = "api"
	AreaFrontend WorkArea = "frontend"
	AreaDatabase WorkArea = "database"
	AreaTests    WorkArea = "tests"
	AreaConfig   WorkArea = "config"
	AreaDocs     WorkArea = "docs"
	AreaGeneral  WorkArea = "general"
)

// Impact grades the blast radius of the change set.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// FileDetail records the area assigned to a single path.
type FileDetail struct {
	Path string
	Area WorkArea
}

// FileAnalysis aggregates per-area file counts.
type FileAnalysis struct {
	Counts     map[WorkArea]int
	Details    []FileDetail
	TotalFiles int
}

// Context is the full development-context assessment.
type Context struct {
	WorkArea        WorkArea
	ChangeImpact    Impact
	Files           FileAnalysis
	Commits         commits.Patterns
	Recommendations []string
	RiskAreas       []string
}

// areaRules are checked in order; the first hit wins, "other" otherwise.
var areaRules = []struct {
	area     WorkArea
	keywords []string
}{
	{AreaAPI, []string{"api/", "endpoints/", "routes/", "controllers/"}},
	{AreaFrontend, []string{"frontend/", "ui/", "components/", "views/", ".vue", ".jsx", ".tsx"}},
	{AreaDatabase, []string{"migration", "schema", "models/", "database/"}},
	{AreaTests, []string{"test", "spec", "__tests__"}},
	{AreaConfig, []string{"config", "settings", ".env", "docker", "deploy"}},
	{AreaDocs, []string{"readme", "docs/", ".md", "documentation"}},
}

const areaOther WorkArea = "other"

// Analyze combines file and commit patterns into a work-area verdict
// with recommendations and risks.
func Analyze(filePaths []string, commitPatterns commits.Patterns) Context {
	files := AnalyzeFiles(filePaths)
	area := determineWorkArea(files)

	return Context{
		WorkArea:        area,
		ChangeImpact:    assessImpact(files, commitPatterns),
		Files:           files,
		Commits:         commitPatterns,
		Recommendations: recommendations(area, commitPatterns.Intent),
		RiskAreas:       riskAreas(area, files),
	}
}

// AnalyzeFiles buckets each path into a work area by keyword.
func AnalyzeFiles(filePaths []string) FileAnalysis {
	counts := make(map[WorkArea]int)
	details := make([]FileDetail, 0, len(filePaths))

	for _, path := range filePaths {
		lower := strings.ToLower(path)
		area := areaOther
		for _, rule := range areaRules {
			if containsAny(lower, rule.keywords) {
				area = rule.area
				break
			}
		}
		counts[area]++
		details = append(details, FileDetail{Path: path, Area: area})
	}

	return FileAnalysis{Counts: counts, Details: details, TotalFiles: len(filePaths)}
}

// determineWorkArea picks the area with the most changed files. Ties
// resolve in fixed rule order so the result is deterministic, and a
// change set dominated by uncategorized files stays "general".
func determineWorkArea(files FileAnalysis) WorkArea {
	maxCount := 0
	for _, count := range files.Counts {
		if count > maxCount {
			maxCount = count
		}
	}
	if maxCount == 0 {
		return AreaGeneral
	}
	for _, rule := range areaRules {
		if files.Counts[rule.area] == maxCount {
			return rule.area
		}
	}
	return AreaGeneral
}

func assessImpact(files FileAnalysis, cp commits.Patterns) Impact {
	switch {
	case cp.UrgencyLevel == "high" || files.TotalFiles > 10 || cp.CommitCount > 5:
		return ImpactHigh
	case files.TotalFiles > 5 || cp.CommitCount > 3:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

var areaRecommendations = map[WorkArea][]string{
	AreaAPI: {
		"Test all modified API endpoints thoroughly",
		"Verify authentication and authorization still work",
		"Update API documentation (OpenAPI/Swagger)",
		"Check for breaking changes in API contracts",
	},
	AreaFrontend: {
		"Test across different browsers and screen sizes",
		"Check mobile responsiveness",
		"Verify accessibility compliance",
		"Test user interactions and workflows",
	},
	AreaDatabase: {
		"Create reversible database migrations",
		"Test migrations on staging data first",
		"Backup production data before deployment",
		"Monitor query performance impact",
	},
	AreaTests: {
		"Run full test suite to ensure no regressions",
		"Check test coverage metrics",
		"Verify tests are not flaky or interdependent",
		"Update test documentation if needed",
	},
}

var intentRecommendations = map[string][]string{
	"feature": {
		"Document the new feature functionality",
		"Add comprehensive tests for the new feature",
		"Consider feature flags for gradual rollout",
	},
	"bugfix": {
		"Add regression tests to prevent future occurrences",
		"Verify the fix doesn't introduce new issues",
		"Document the root cause and solution",
	},
}

func recommendations(area WorkArea, intent string) []string {
	var recs []string
	recs = append(recs, areaRecommendations[area]...)
	recs = append(recs, intentRecommendations[intent]...)
	return recs
}

var areaRisks = map[WorkArea][]string{
	AreaAPI: {
		"Breaking API contracts for existing clients",
		"Authentication or authorization bypass",
		"Performance impact on high-traffic endpoints",
	},
	AreaDatabase: {
		"Data loss during migration",
		"Performance degradation of existing queries",
		"Constraint violations with existing data",
	},
	AreaFrontend: {
		"Cross-browser compatibility issues",
		"Mobile device performance problems",
		"Accessibility regressions",
	},
}

func riskAreas(area WorkArea, files FileAnalysis) []string {
	var risks []string
	risks = append(risks, areaRisks[area]...)
	if files.TotalFiles > 5 {
		risks = append(risks, "High number of file changes increases integration risk")
	}
	return risks
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
