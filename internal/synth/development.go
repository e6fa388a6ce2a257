package synth

import (
	"fmt"
	"strings"

	"github.com/Droshow/copidock/internal/commits"
	"github.com/Droshow/copidock/internal/devcontext"
	"github.com/Droshow/copidock/internal/persona"
	"github.com/Droshow/copidock/internal/questions"
)

// Development renders the git-aware snapshot. A missing persona
// template is fatal on this path.
func (s *Synthesizer) Development(in Input, ctx Context) (Sections, error) {
	cfg, err := s.personas.Load(in.Persona)
	if err != nil {
		return Sections{}, fmt.Errorf("loading development persona %q: %w", in.Persona, err)
	}

	patterns := commits.AnalyzePatterns(in.Commits)
	dev := devcontext.Analyze(in.FilePaths, patterns)

	mined := questions.Mine(in.FilePaths, in.RepoRoot, commitSources(in.Commits))

	return Sections{
		OperatorInstructions: developmentOperatorInstructions(ctx, cfg, dev),
		CurrentState:         developmentCurrentState(in.FilePaths, dev),
		DecisionsConstraints: developmentDecisionsConstraints(ctx, cfg, dev),
		OpenQuestions:        developmentOpenQuestions(dev, in.FilePaths, mined),
	}, nil
}

func commitSources(records []commits.Record) []questions.CommitSource {
	out := make([]questions.CommitSource, len(records))
	for i, r := range records {
		out[i] = questions.CommitSource{Hash: r.Hash, Subject: r.Subject, Body: r.Body}
	}
	return out
}

func developmentOperatorInstructions(ctx Context, cfg *persona.Config, dev devcontext.Context) string {
	focus := orDefault(ctx.Focus, "development work")
	output := orDefault(ctx.Output, "working implementation")

	do := append([]string{}, cfg.GuidelinesDo...)
	risks := append([]string{}, cfg.RiskFactors...)
	if overlay, ok := cfg.DevelopmentContexts[string(dev.WorkArea)]; ok {
		do = append(do, overlay.SpecificGuidelines...)
		risks = append(risks, overlay.RiskFactors...)
	}

	role := orDefault(cfg.Role, "Senior Backend Developer")
	personaContext := orDefault(cfg.Context, "working on development tasks")

	return fmt.Sprintf(`## Operator Instructions

You are a **%s** %s.

**Primary Focus**: %s
**Development Area**: %s Development
**Change Impact**: %s

### Guidelines

**Do:**
%s

**Don't:**
%s

### Development Tasks for This Session
%s

### Context-Specific Recommendations
%s

### Expected Outputs
%s

### Risk Factors
%s

---
`,
		role, personaContext, focus,
		titleCase(string(dev.WorkArea)), titleCase(string(dev.ChangeImpact)),
		bulletList(do), bulletList(cfg.GuidelinesDont),
		bulletList(cfg.TaskPriorities), bulletList(dev.Recommendations),
		output, bulletList(risks))
}

func developmentCurrentState(filePaths []string, dev devcontext.Context) string {
	intent := orDefault(dev.Commits.Intent, "general")

	var breakdown []string
	for _, area := range []devcontext.WorkArea{
		devcontext.AreaAPI, devcontext.AreaFrontend, devcontext.AreaDatabase,
		devcontext.AreaTests, devcontext.AreaConfig, devcontext.AreaDocs,
	} {
		if count := dev.Files.Counts[area]; count > 0 {
			breakdown = append(breakdown, fmt.Sprintf("- **%s**: %d files", titleCase(string(area)), count))
		}
	}
	breakdownText := "- General development work"
	if len(breakdown) > 0 {
		breakdownText = strings.Join(breakdown, "\n")
	}

	return fmt.Sprintf(`## Current Development State

**Modified Files**: %d files across %s area
**Recent Work**: %d commits focused on %s work

### File Breakdown
%s

### Development Context
- **Primary Area**: %s development
- **Change Impact**: %s
- **Work Intent**: %s implementation

### Recent Activity
- Last %d commits show %s work
- %d files modified in current session
- Focus area: %s development
`,
		len(filePaths), dev.WorkArea, dev.Commits.CommitCount, intent,
		breakdownText,
		titleCase(string(dev.WorkArea)), titleCase(string(dev.ChangeImpact)), titleCase(intent),
		dev.Commits.CommitCount, intent, len(filePaths), dev.WorkArea)
}

func developmentDecisionsConstraints(ctx Context, cfg *persona.Config, dev devcontext.Context) string {
	constraints := orDefault(ctx.Constraints, "best practices")

	var approach []string
	for _, area := range cfg.FocusAreas {
		lower := strings.ToLower(area)
		switch {
		case strings.Contains(lower, "quality"):
			approach = append(approach, "- **Code Quality**: Maintain consistency with existing codebase")
		case strings.Contains(lower, "testing"):
			approach = append(approach, "- **Testing**: Comprehensive testing for all modifications")
		case strings.Contains(lower, "documentation"):
			approach = append(approach, "- **Documentation**: Update docs to reflect changes")
		case strings.Contains(lower, "integration"):
			approach = append(approach, "- **Integration**: Ensure compatibility with existing systems")
		case strings.Contains(lower, "performance"):
			approach = append(approach, "- **Performance**: Monitor and optimize performance impact")
		case strings.Contains(lower, "security"):
			approach = append(approach, "- **Security**: Review security implications of changes")
		}
	}

	var priorities []string
	switch dev.WorkArea {
	case devcontext.AreaAPI:
		priorities = []string{
			"**API Compatibility**: Maintain backwards compatibility",
			"**Testing**: Test all endpoints and edge cases",
			"**Documentation**: Update API documentation",
			"**Performance**: Monitor response times and throughput",
		}
	case devcontext.AreaFrontend:
		priorities = []string{
			"**User Experience**: Maintain consistent UI patterns",
			"**Cross-Browser**: Test across different browsers",
			"**Performance**: Optimize for mobile and desktop",
			"**Accessibility**: Ensure accessibility compliance",
		}
	case devcontext.AreaDatabase:
		priorities = []string{
			"**Data Integrity**: Ensure migration safety",
			"**Performance**: Monitor query performance impact",
			"**Rollback**: Plan rollback strategies",
			"**Testing**: Test migrations on staging data",
		}
	default:
		priorities = []string{
			"**Code Quality**: Follow established patterns",
			"**Testing**: Add comprehensive test coverage",
			"**Integration**: Verify system integration",
			"**Documentation**: Update relevant documentation",
		}
	}

	var numbered []string
	for i, p := range priorities {
		numbered = append(numbered, fmt.Sprintf("%d. %s", i+1, p))
	}

	return fmt.Sprintf(`## Decisions & Constraints

**Project Requirements**: %s

## Technical Approach
%s

## Development Priorities
%s`,
		constraints, strings.Join(approach, "\n"), strings.Join(numbered, "\n"))
}

func developmentOpenQuestions(dev devcontext.Context, filePaths []string, mined string) string {
	var qs []string

	switch dev.WorkArea {
	case devcontext.AreaAPI:
		qs = append(qs,
			"Are there any breaking changes in the API modifications?",
			"Do we need to version these API changes?",
			"Have all authentication scenarios been tested?",
			"Is the API documentation up to date?")
	case devcontext.AreaDatabase:
		qs = append(qs,
			"Can these database changes be rolled back safely?",
			"Have migrations been tested with production-like data?",
			"Will these changes impact query performance?",
			"Are there any data integrity concerns?")
	case devcontext.AreaFrontend:
		qs = append(qs,
			"Have these changes been tested on mobile devices?",
			"Are there any accessibility concerns with the UI changes?",
			"Do these changes impact page load performance?",
			"Are the UI patterns consistent with the rest of the application?")
	}

	if dev.ChangeImpact == devcontext.ImpactHigh {
		qs = append(qs,
			"Should these high-impact changes be deployed gradually?",
			"Do we have adequate monitoring for these changes?",
			"Is there a rollback plan if issues arise?")
	}
	if len(dev.Recommendations) > 3 {
		qs = append(qs, "Are there too many changes being made at once?")
	}
	if len(filePaths) > 8 {
		qs = append(qs, "Should this work be broken into smaller, more focused changes?")
	}

	if len(qs) == 0 {
		qs = []string{
			"Are there any potential integration issues with existing code?",
			"Have all edge cases been considered and tested?",
			"Is additional documentation needed for these changes?",
			"Are there performance implications to consider?",
		}
	}

	risksText := "- Standard development risks apply"
	if len(dev.RiskAreas) > 0 {
		risksText = bulletList(dev.RiskAreas)
	}

	section := fmt.Sprintf(`## Open Questions & Considerations

### Development Questions
%s

### Risk Assessment
%s

### Next Steps
- Review and address the questions above
- Complete testing based on recommendations
- Update documentation as needed
- Plan deployment and monitoring strategy`,
		bulletList(qs), risksText)

	// Mined annotations ride along when any were found.
	if !strings.Contains(mined, "No open questions found") {
		section += "\n\n" + strings.Replace(mined, "## Open Questions\n", "### Annotations In Recent Changes\n", 1)
	}

	return section
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
